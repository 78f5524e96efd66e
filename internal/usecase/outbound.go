package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/integration/whatsapp"
	"github.com/xavierca1/muyu-crm/internal/infra/mail"
)

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// OutboundUseCase sends follow-ups, task notices and campaigns. Mailer and
// Dispatcher are nil when SMTP is not configured.
type OutboundUseCase struct {
	Institutions   entity.InstitutionRepository
	Tasks          entity.TaskRepository
	Users          entity.UserRepository
	Mailer         EmailService
	Dispatcher     EmailDispatcher
	WhatsApp       WhatsAppService
	Clock          Clock
	StaleAfterDays int
	Log            *zap.Logger
}

func NewOutboundUseCase(
	institutions entity.InstitutionRepository,
	tasks entity.TaskRepository,
	users entity.UserRepository,
	mailer EmailService,
	dispatcher EmailDispatcher,
	wa WhatsAppService,
	clock Clock,
	staleAfterDays int,
	log *zap.Logger,
) *OutboundUseCase {
	return &OutboundUseCase{
		Institutions:   institutions,
		Tasks:          tasks,
		Users:          users,
		Mailer:         mailer,
		Dispatcher:     dispatcher,
		WhatsApp:       wa,
		Clock:          clock,
		StaleAfterDays: staleAfterDays,
		Log:            log,
	}
}

// ContactInstitution sends the commercial follow-up to the rector or the
// counterpart. Email goes out over SMTP right away; WhatsApp returns a
// click-to-chat link unless Send is set and the Cloud API is configured.
func (uc *OutboundUseCase) ContactInstitution(ctx context.Context, p entity.Principal, institutionID string, in ContactInstitutionInput) (*OutboundOutput, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}
	if errs := validateStruct(in); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	inst, err := uc.Institutions.FindByID(ctx, institutionID)
	if err != nil {
		return nil, repoError("load institution", "institución", err)
	}
	contact := inst.Rector
	if in.Contact == "counterpart" {
		contact = inst.Counterpart
	}

	data := mail.FollowUpData{
		ContactName:     contact.Name,
		InstitutionName: inst.Name,
		Program:         inst.ProgramProposed,
		Stage:           inst.Stage.Label(),
		LastInteraction: formatDay(inst.LastInteraction),
		SenderEmail:     p.Email,
	}

	if in.Channel == ChannelEmail {
		if contact.Email == "" {
			return nil, validationFailed([]ValidationError{{Field: "contact", Message: "has no email address"}})
		}
		subject, body, err := mail.FollowUp(data)
		if err != nil {
			return nil, &TechnicalError{Code: CodeSMTP, Message: "failed to render follow-up", Err: err}
		}
		if err := uc.sendNow(ctx, mail.Message{To: []string{contact.Email}, Subject: subject, Body: body, HTML: true}); err != nil {
			return nil, err
		}
		uc.Log.Info("follow-up email sent",
			zap.String("institution_id", inst.ID),
			zap.String("contact", in.Contact),
			zap.String("by", p.Username))
		return &OutboundOutput{Channel: ChannelEmail, Recipient: contact.Email, Subject: subject, Body: body, Sent: true}, nil
	}

	text, err := mail.FollowUpText(data)
	if err != nil {
		return nil, &TechnicalError{Code: CodeWhatsApp, Message: "failed to render follow-up", Err: err}
	}
	return uc.whatsapp(ctx, contact.Phone, text, in.Send)
}

// NotifyTaskAssignee tells the assignee about a task by email or WhatsApp.
func (uc *OutboundUseCase) NotifyTaskAssignee(ctx context.Context, p entity.Principal, taskID string, in NotifyTaskInput) (*OutboundOutput, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}
	if errs := validateStruct(in); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	task, err := uc.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, repoError("load task", "tarea", err)
	}
	if task.AssigneeID == nil {
		return nil, validationFailed([]ValidationError{{Field: "assignee_id", Message: "task has no assignee"}})
	}
	assignee, err := uc.Users.FindByID(ctx, *task.AssigneeID)
	if err != nil {
		return nil, repoError("load assignee", "usuario", err)
	}
	if task.InstitutionName == "" {
		if inst, err := uc.Institutions.FindByID(ctx, task.InstitutionID); err == nil {
			task.InstitutionName = inst.Name
		}
	}

	data := mail.TaskAssignedData{
		AssigneeName:    assignee.FullName,
		Title:           task.Title,
		InstitutionName: task.InstitutionName,
		DueDate:         task.DueDate.Format("2006-01-02"),
		Done:            task.Done,
		Notes:           task.Notes,
	}

	if in.Channel == ChannelEmail {
		if assignee.Email == "" {
			return nil, validationFailed([]ValidationError{{Field: "assignee_id", Message: "assignee has no email address"}})
		}
		subject, body, err := mail.TaskAssigned(data)
		if err != nil {
			return nil, &TechnicalError{Code: CodeSMTP, Message: "failed to render task notice", Err: err}
		}
		if err := uc.sendNow(ctx, mail.Message{To: []string{assignee.Email}, Subject: subject, Body: body, HTML: true}); err != nil {
			return nil, err
		}
		uc.Log.Info("task notice sent", zap.String("task_id", task.ID), zap.String("to", assignee.Username))
		return &OutboundOutput{Channel: ChannelEmail, Recipient: assignee.Email, Subject: subject, Body: body, Sent: true}, nil
	}

	if assignee.Phone == "" {
		return nil, validationFailed([]ValidationError{{Field: "assignee_id", Message: "assignee has no phone number"}})
	}
	text, err := mail.TaskAssignedText(data)
	if err != nil {
		return nil, &TechnicalError{Code: CodeWhatsApp, Message: "failed to render task notice", Err: err}
	}
	return uc.whatsapp(ctx, assignee.Phone, text, in.Send)
}

// SendCampaign hands one message per unique recipient to the dispatcher.
// Failures are collected per recipient; the rest still go out.
func (uc *OutboundUseCase) SendCampaign(ctx context.Context, p entity.Principal, in CampaignInput) (*CampaignOutput, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}
	errs := validateStruct(in)
	if len(in.Recipients) == 0 && in.Filter == nil {
		errs = append(errs, ValidationError{Field: "recipients", Message: "recipients or filter is required"})
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if uc.Dispatcher == nil {
		return nil, &DomainError{Code: CodeNotConfigured, Message: "el envío de correos no está configurado"}
	}

	recipients := append([]string(nil), in.Recipients...)
	if in.Filter != nil {
		filter, ferrs := institutionFilter(*in.Filter, uc.Clock, uc.StaleAfterDays)
		if len(ferrs) > 0 {
			return nil, validationFailed(ferrs)
		}
		institutions, err := uc.Institutions.List(ctx, filter)
		if err != nil {
			return nil, repoError("list institutions", "institución", err)
		}
		for _, inst := range institutions {
			if in.Contacts != "counterpart" {
				recipients = append(recipients, inst.Rector.Email)
			}
			if in.Contacts == "counterpart" || in.Contacts == "both" {
				recipients = append(recipients, inst.Counterpart.Email)
			}
		}
	}
	recipients = uniqueEmails(recipients)

	subject := cleanText(in.Subject)
	body := in.Body
	if in.HTML {
		body = cleanHTML(body)
	}

	out := &CampaignOutput{Requested: len(recipients)}
	for _, to := range recipients {
		msg := mail.Message{To: []string{to}, Subject: subject, Body: body, HTML: in.HTML}
		if err := uc.Dispatcher.Dispatch(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			uc.Log.Warn("campaign message failed", zap.String("to", to), zap.Error(err))
			out.Failures = append(out.Failures, RecipientFailure{Recipient: to, Error: err.Error()})
			continue
		}
		out.Dispatched++
	}

	uc.Log.Info("campaign dispatched",
		zap.Int("requested", out.Requested),
		zap.Int("dispatched", out.Dispatched),
		zap.Int("failed", len(out.Failures)),
		zap.String("by", p.Username))
	return out, nil
}

func (uc *OutboundUseCase) sendNow(ctx context.Context, msg mail.Message) error {
	if uc.Mailer == nil {
		return &DomainError{Code: CodeNotConfigured, Message: "el envío de correos no está configurado"}
	}
	if err := uc.Mailer.Send(ctx, msg); err != nil {
		return &TechnicalError{Code: CodeSMTP, Message: "failed to send email", Err: err}
	}
	return nil
}

func (uc *OutboundUseCase) whatsapp(ctx context.Context, phone, text string, send bool) (*OutboundOutput, error) {
	if phone == "" {
		return nil, validationFailed([]ValidationError{{Field: "contact", Message: "has no phone number"}})
	}
	out := &OutboundOutput{Channel: ChannelWhatsApp, Recipient: phone, Body: text}

	if send && uc.WhatsApp != nil && uc.WhatsApp.Configured() {
		id, err := uc.WhatsApp.SendText(ctx, whatsapp.SendTextInput{PhoneNumber: phone, Body: text})
		if err != nil {
			return nil, &TechnicalError{Code: CodeWhatsApp, Message: "failed to send whatsapp message", Err: err}
		}
		out.Sent = true
		out.MessageID = id
		return out, nil
	}

	link, err := whatsapp.DeepLink(phone, text)
	if err != nil {
		return nil, validationFailed([]ValidationError{{Field: "contact", Message: err.Error()}})
	}
	out.Link = link
	return out, nil
}

func uniqueEmails(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || e == placeholderContactEmail || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02")
}
