package models

// Role is the global business role of a user.
type Role string

const (
	RoleAdmin       Role = "admin"
	RolePoleManager Role = "pole_manager"
	RoleDelegate    Role = "delegate"
	RoleMember      Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePoleManager, RoleDelegate, RoleMember:
		return true
	}
	return false
}

// PoleRole is the role of a user inside one pôle.
type PoleRole string

const (
	PoleRoleHead      PoleRole = "head"
	PoleRoleAssistant PoleRole = "assistant"
	PoleRoleMember    PoleRole = "member"
)

func (r PoleRole) Valid() bool {
	switch r {
	case PoleRoleHead, PoleRoleAssistant, PoleRoleMember:
		return true
	}
	return false
}

type RequeteStatus string

const (
	RequeteNew         RequeteStatus = "new"
	RequeteInfoNeeded  RequeteStatus = "info_needed"
	RequeteProcessing  RequeteStatus = "processing"
	RequeteHREscalated RequeteStatus = "hr_escalated"
	RequeteHRPending   RequeteStatus = "hr_pending"
	RequeteResolved    RequeteStatus = "resolved"
	RequeteClosed      RequeteStatus = "closed"
)

// IsSettled is true for resolved and closed requêtes.
func (s RequeteStatus) IsSettled() bool {
	return s == RequeteResolved || s == RequeteClosed
}

// Label is the French display name used in notification messages.
func (s RequeteStatus) Label() string {
	switch s {
	case RequeteNew:
		return "Nouveau"
	case RequeteInfoNeeded:
		return "Besoin d'infos"
	case RequeteProcessing:
		return "En traitement"
	case RequeteHREscalated:
		return "Escaladé RH"
	case RequeteHRPending:
		return "En attente RH"
	case RequeteResolved:
		return "Résolu"
	case RequeteClosed:
		return "Clôturé"
	}
	return string(s)
}

type RequetePriority string

const (
	PriorityLow      RequetePriority = "low"
	PriorityMedium   RequetePriority = "medium"
	PriorityHigh     RequetePriority = "high"
	PriorityCritical RequetePriority = "critical"
)

func (p RequetePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ProblemTypes lists the categories a requête can be filed under.
var ProblemTypes = []string{
	"working_conditions_remuneration",
	"training_career",
	"social_mediation",
	"health_safety_wellbeing",
	"legal_compliance",
	"communication_awareness",
	"innovation_digital_transformation",
	"external_relations_partnerships",
	"youth_new_employees",
	"sport_wellbeing",
	"other",
}

func ValidProblemType(t string) bool {
	for _, known := range ProblemTypes {
		if known == t {
			return true
		}
	}
	return false
}

type DossierStatus string

const (
	DossierOpen                DossierStatus = "open"
	DossierInInstruction       DossierStatus = "in_instruction"
	DossierAwaitingMeeting     DossierStatus = "awaiting_meeting"
	DossierTransmittedToBureau DossierStatus = "transmitted_to_bureau"
	DossierClosed              DossierStatus = "closed"
	DossierArchived            DossierStatus = "archived"
)

func (s DossierStatus) Label() string {
	switch s {
	case DossierOpen:
		return "Ouvert"
	case DossierInInstruction:
		return "En instruction"
	case DossierAwaitingMeeting:
		return "En attente de réunion"
	case DossierTransmittedToBureau:
		return "Transmis au bureau"
	case DossierClosed:
		return "Clôturé"
	case DossierArchived:
		return "Archivé"
	}
	return string(s)
}

type ReunionType string

const (
	ReunionPhone    ReunionType = "phone"
	ReunionInPerson ReunionType = "in_person"
	ReunionVideo    ReunionType = "video"
)

func (t ReunionType) Valid() bool {
	switch t {
	case ReunionPhone, ReunionInPerson, ReunionVideo:
		return true
	}
	return false
}

type ReunionStatus string

const (
	ReunionPlanned   ReunionStatus = "planned"
	ReunionDone      ReunionStatus = "done"
	ReunionCancelled ReunionStatus = "cancelled"
)

func (s ReunionStatus) Valid() bool {
	switch s {
	case ReunionPlanned, ReunionDone, ReunionCancelled:
		return true
	}
	return false
}

type DocumentType string

const (
	DocumentContrat     DocumentType = "CONTRAT"
	DocumentAttestation DocumentType = "ATTESTATION"
	DocumentCourrier    DocumentType = "COURRIER"
	DocumentPhoto       DocumentType = "PHOTO"
	DocumentAutre       DocumentType = "AUTRE"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentContrat, DocumentAttestation, DocumentCourrier, DocumentPhoto, DocumentAutre:
		return true
	}
	return false
}

type NotificationType string

const (
	NotificationTicketUpdate NotificationType = "ticket_update"
	NotificationNewMessage   NotificationType = "new_message"
	NotificationInfoRequest  NotificationType = "info_request"
	NotificationGeneral      NotificationType = "general"
)

// AuditAction is the kind of event recorded in the ledger.
type AuditAction string

const (
	ActionCreation        AuditAction = "CREATION"
	ActionModification    AuditAction = "MODIFICATION"
	ActionStatusChange    AuditAction = "MODIFICATION_STATUT"
	ActionComment         AuditAction = "AJOUT_COMMENTAIRE"
	ActionAssignment      AuditAction = "ASSIGNATION"
	ActionMeetingPlanned  AuditAction = "REUNION_PLANIFIEE"
	ActionAttachmentAdded AuditAction = "PIECE_JOINTE_AJOUTEE"
	ActionTransmission    AuditAction = "TRANSMISSION"
	ActionClosure         AuditAction = "CLOTURE"
)

// EntityKind tags the entity an audit entry or access target refers to.
type EntityKind string

const (
	KindRequete      EntityKind = "requete"
	KindDossier      EntityKind = "dossier"
	KindReunion      EntityKind = "reunion"
	KindPieceJointe  EntityKind = "piece_jointe"
	KindNotification EntityKind = "notification"
)
