package mail

// Message is one outbound email. Every address in To receives its own copy.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	HTML    bool     `json:"html"`
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

type FollowUpData struct {
	ContactName     string
	InstitutionName string
	Program         string
	Stage           string
	LastInteraction string
	SenderEmail     string
}

type TaskAssignedData struct {
	AssigneeName    string
	Title           string
	InstitutionName string
	DueDate         string
	Done            bool
	Notes           string
}

type StaleDigestData struct {
	RecipientName string
	Days          int
	Leads         []StaleDigestLead
}

type StaleDigestLead struct {
	Name            string
	Stage           string
	LastInteraction string
	Owner           string
}
