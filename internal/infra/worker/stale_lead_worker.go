package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/mail"
	"github.com/xavierca1/muyu-crm/internal/usecase"
)

var staleLeadsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "crm_stale_leads",
	Help: "Institutions without contact for longer than the stale threshold",
})

type StaleLeadLister interface {
	List(ctx context.Context) ([]usecase.StaleLead, error)
}

type UserLister interface {
	List(ctx context.Context) ([]entity.User, error)
}

type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// StaleLeadWorker mails a digest of leads without recent contact to the
// active admins. It only reports; follow-up tasks are created by users.
type StaleLeadWorker struct {
	Leads    StaleLeadLister
	Users    UserLister
	Mailer   Mailer // nil: only the gauge is updated
	Days     int
	Schedule string
	Location *time.Location
	Log      *zap.Logger
}

func NewStaleLeadWorker(leads StaleLeadLister, users UserLister, mailer Mailer, days int, schedule string, loc *time.Location, log *zap.Logger) *StaleLeadWorker {
	return &StaleLeadWorker{
		Leads:    leads,
		Users:    users,
		Mailer:   mailer,
		Days:     days,
		Schedule: schedule,
		Location: loc,
		Log:      log,
	}
}

// Start runs the digest on Schedule until ctx is cancelled.
func (w *StaleLeadWorker) Start(ctx context.Context) error {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(w.Schedule, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			w.Log.Error("stale lead digest failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", w.Schedule, err)
	}

	w.Log.Info("stale lead worker started", zap.String("schedule", w.Schedule), zap.Int("days", w.Days))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	w.Log.Info("stale lead worker stopped")
	return nil
}

// RunOnce refreshes the gauge and sends the digest. It returns the number
// of stale leads found.
func (w *StaleLeadWorker) RunOnce(ctx context.Context) (int, error) {
	leads, err := w.Leads.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stale leads: %w", err)
	}
	staleLeadsGauge.Set(float64(len(leads)))

	if len(leads) == 0 || w.Mailer == nil {
		return len(leads), nil
	}

	users, err := w.Users.List(ctx)
	if err != nil {
		return len(leads), fmt.Errorf("list admins: %w", err)
	}

	data := mail.StaleDigestData{Days: w.Days}
	for _, l := range leads {
		last := "Nunca"
		if l.Institution.LastInteraction != nil {
			last = l.Institution.LastInteraction.Format("2006-01-02")
		}
		owner := l.Institution.OwnerName
		if owner == "" {
			owner = "Sin asignar"
		}
		data.Leads = append(data.Leads, mail.StaleDigestLead{
			Name:            l.Institution.Name,
			Stage:           l.Institution.Position().String(),
			LastInteraction: last,
			Owner:           owner,
		})
	}

	sent := 0
	for _, u := range users {
		if u.Role != entity.RoleAdmin || !u.Active || u.Email == "" {
			continue
		}
		data.RecipientName = u.FullName
		subject, body, err := mail.StaleDigest(data)
		if err != nil {
			return len(leads), fmt.Errorf("render digest: %w", err)
		}
		if err := w.Mailer.Send(ctx, mail.Message{To: []string{u.Email}, Subject: subject, Body: body, HTML: true}); err != nil {
			w.Log.Warn("stale digest not delivered", zap.String("to", u.Email), zap.Error(err))
			continue
		}
		sent++
	}

	w.Log.Info("stale lead digest sent", zap.Int("leads", len(leads)), zap.Int("recipients", sent))
	return len(leads), nil
}
