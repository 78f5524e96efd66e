package entity

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageQueued        Stage = "queued"
	StageInProgress    Stage = "in_progress"
	StageWon           Stage = "won"
	StageNotInterested Stage = "not_interested"
)

// Stages is the board order.
var Stages = []Stage{StageQueued, StageInProgress, StageWon, StageNotInterested}

var stageLabels = map[Stage]string{
	StageQueued:        "En cola",
	StageInProgress:    "En Proceso",
	StageWon:           "Ganado",
	StageNotInterested: "No interesado",
}

// labels used by older sheets and the first version of the board
var legacyStageLabels = map[string]Stage{
	"abierto":                 StageQueued,
	"cerrado / ganado":        StageWon,
	"cerrado/ganado":          StageWon,
	"perdido / no interesado": StageNotInterested,
	"perdido/no interesado":   StageNotInterested,
	"perdido":                 StageNotInterested,
}

func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStage accepts the code or the display label, case-insensitively.
func ParseStage(v string) (Stage, error) {
	key := normalizeKey(v)
	for code, label := range stageLabels {
		if key == string(code) || key == normalizeKey(label) {
			return code, nil
		}
	}
	if s, ok := legacyStageLabels[key]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, v)
}

type Substage string

const (
	SubstageFirstMeeting     Substage = "first_meeting"
	SubstageProposalSent     Substage = "proposal_sent"
	SubstageNegotiation      Substage = "negotiation"
	SubstageNoResponse       Substage = "no_response"
	SubstageNotInterested    Substage = "not_interested"
	SubstageOnHold           Substage = "on_hold"
	SubstageMeetingScheduled Substage = "meeting_scheduled"
	SubstageContractReview   Substage = "contract_review"
	SubstageContractSigned   Substage = "contract_signed"
	SubstageInvoiceIssued    Substage = "invoice_issued"
	SubstagePaymentReceived  Substage = "payment_received"
)

var Substages = []Substage{
	SubstageFirstMeeting, SubstageProposalSent, SubstageNegotiation, SubstageNoResponse,
	SubstageNotInterested, SubstageOnHold, SubstageMeetingScheduled, SubstageContractReview,
	SubstageContractSigned, SubstageInvoiceIssued, SubstagePaymentReceived,
}

var substageLabels = map[Substage]string{
	SubstageFirstMeeting:     "Primera reunión",
	SubstageProposalSent:     "Envío propuesta",
	SubstageNegotiation:      "Negociación",
	SubstageNoResponse:       "Sin respuesta",
	SubstageNotInterested:    "No interesado",
	SubstageOnHold:           "Stand by",
	SubstageMeetingScheduled: "Reunión agendada",
	SubstageContractReview:   "Revisión contrato",
	SubstageContractSigned:   "Contrato firmado",
	SubstageInvoiceIssued:    "Factura emitida",
	SubstagePaymentReceived:  "Pago recibido",
}

func (s Substage) Valid() bool {
	_, ok := substageLabels[s]
	return ok
}

func (s Substage) Label() string {
	if l, ok := substageLabels[s]; ok {
		return l
	}
	return string(s)
}

func ParseSubstage(v string) (Substage, error) {
	key := normalizeKey(v)
	for code, label := range substageLabels {
		if key == string(code) || key == normalizeKey(label) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSubstage, v)
}

// Position is where a lead sits on the board.
type Position struct {
	Stage    Stage    `json:"stage"`
	Substage Substage `json:"substage"`
}

func (p Position) Validate() error {
	if !p.Stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, p.Stage)
	}
	if !p.Substage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSubstage, p.Substage)
	}
	return nil
}

func (p Position) String() string {
	return p.Stage.Label() + "/" + p.Substage.Label()
}

// stageTransitions lists the stages reachable from each stage. Every stage can
// currently reach every other one, including reopening closed leads.
var stageTransitions = map[Stage]map[Stage]bool{
	StageQueued:        {StageQueued: true, StageInProgress: true, StageWon: true, StageNotInterested: true},
	StageInProgress:    {StageQueued: true, StageInProgress: true, StageWon: true, StageNotInterested: true},
	StageWon:           {StageQueued: true, StageInProgress: true, StageWon: true, StageNotInterested: true},
	StageNotInterested: {StageQueued: true, StageInProgress: true, StageWon: true, StageNotInterested: true},
}

// FollowUpRule creates a task when a lead enters Substage.
type FollowUpRule struct {
	Substage  Substage
	Title     string
	DueInDays int
}

var followUpRules = []FollowUpRule{
	{Substage: SubstageMeetingScheduled, Title: "Confirmar reunión agendada", DueInDays: 0},
	{Substage: SubstageProposalSent, Title: "Seguimiento de propuesta enviada", DueInDays: 2},
}

// Transition is a validated board move together with the follow-ups it triggers.
type Transition struct {
	From      Position
	To        Position
	FollowUps []FollowUpRule
}

func (t Transition) Changed() bool {
	return t.From != t.To
}

// ValidateTransition checks a move between positions. A source position
// that is not part of the current vocabulary (old rows) can move anywhere.
func ValidateTransition(from, to Position) (Transition, error) {
	if err := to.Validate(); err != nil {
		return Transition{}, err
	}
	if from.Stage.Valid() {
		if !stageTransitions[from.Stage][to.Stage] {
			return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from.Stage, to.Stage)
		}
	}

	t := Transition{From: from, To: to}
	if from.Substage != to.Substage {
		for _, rule := range followUpRules {
			if rule.Substage == to.Substage {
				t.FollowUps = append(t.FollowUps, rule)
			}
		}
	}
	return t, nil
}

type Medium string

const (
	MediumWhatsapp        Medium = "whatsapp"
	MediumEmail           Medium = "email"
	MediumCall            Medium = "call"
	MediumEvent           Medium = "event"
	MediumReferral        Medium = "referral"
	MediumVirtualMeeting  Medium = "virtual_meeting"
	MediumInPersonMeeting Medium = "in_person_meeting"
	MediumEmailMarketing  Medium = "email_marketing"
	MediumSocialMedia     Medium = "social_media"
	// MediumPipeline marks interactions written by board moves.
	MediumPipeline Medium = "pipeline"
)

var mediumLabels = map[Medium]string{
	MediumWhatsapp:        "Whatsapp",
	MediumEmail:           "Correo electrónico",
	MediumCall:            "Llamada",
	MediumEvent:           "Evento",
	MediumReferral:        "Referido",
	MediumVirtualMeeting:  "Reunión virtual",
	MediumInPersonMeeting: "Reunión presencial",
	MediumEmailMarketing:  "Email marketing",
	MediumSocialMedia:     "Redes Sociales",
	MediumPipeline:        "Pipeline",
}

func (m Medium) Valid() bool {
	_, ok := mediumLabels[m]
	return ok
}

func (m Medium) Label() string {
	if l, ok := mediumLabels[m]; ok {
		return l
	}
	return string(m)
}

func ParseMedium(v string) (Medium, error) {
	key := normalizeKey(v)
	for code, label := range mediumLabels {
		if key == string(code) || key == normalizeKey(label) {
			return code, nil
		}
	}
	switch key {
	case "correo", "mail", "e-mail":
		return MediumEmail, nil
	case "llamada telefónica", "telefono", "teléfono":
		return MediumCall, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMedium, v)
}

const DefaultProgram = "Demo"

var Programs = []string{
	"Programa Muyu Lab",
	"Programa Piloto Muyu Lab",
	"Programa Muyu App",
	"Programa Piloto Muyu App",
	"Muyu Scale Lab",
	"Programa Piloto Muyu ScaleLab",
	DefaultProgram,
}

// ParseProgram returns the canonical program name, or false when unknown.
func ParseProgram(v string) (string, bool) {
	key := normalizeKey(v)
	for _, p := range Programs {
		if key == normalizeKey(p) {
			return p, true
		}
	}
	return "", false
}

// CountryCodes maps the supported countries to their dialing prefix.
var CountryCodes = map[string]string{
	"Ecuador":   "+593",
	"Colombia":  "+57",
	"Perú":      "+51",
	"México":    "+52",
	"Chile":     "+56",
	"Argentina": "+54",
}

func normalizeKey(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), " "))
}
