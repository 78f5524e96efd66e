package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/spreadsheet"
)

// Placeholders written when an imported row leaves a contact field empty.
const (
	placeholderContactName  = "Por definir"
	placeholderContactEmail = "pendiente@muyu.com"
	placeholderContactPhone = "+593 000000000"
)

// importColumns maps each institution field to the headers accepted for it.
var importColumns = map[string][]string{
	"name":                   {"name", "nombre", "institucion", "institución"},
	"rector_name":            {"rector_name", "rector"},
	"rector_email":           {"rector_email"},
	"rector_phone":           {"rector_phone"},
	"counterpart_name":       {"counterpart_name", "contraparte_name", "contraparte"},
	"counterpart_email":      {"counterpart_email", "contraparte_email"},
	"counterpart_phone":      {"counterpart_phone", "contraparte_phone"},
	"website":                {"website", "web"},
	"country":                {"country", "pais", "país"},
	"city":                   {"city", "ciudad"},
	"address":                {"address", "direccion", "dirección"},
	"num_teachers":           {"num_teachers", "docentes"},
	"num_students":           {"num_students", "estudiantes"},
	"avg_fee":                {"avg_fee", "pension", "pensión"},
	"initial_contact_medium": {"initial_contact_medium", "medio"},
	"stage":                  {"stage", "etapa"},
	"substage":               {"substage", "subetapa"},
	"program_proposed":       {"program_proposed", "programa"},
	"proposal_value":         {"proposal_value", "valor_propuesta"},
	"contract_start":         {"contract_start", "contract_start_date"},
	"contract_end":           {"contract_end", "contract_end_date"},
	"observations":           {"observations", "observaciones"},
	"owner":                  {"owner", "assigned_commercial", "responsable"},
}

// ImportInstitutionsUseCase loads institutions from an uploaded sheet. Rows are
// inserted one by one: a failing row is reported and the rest still load.
type ImportInstitutionsUseCase struct {
	Repo  entity.InstitutionRepository
	Users entity.UserRepository
	Clock Clock
	Log   *zap.Logger
}

func NewImportInstitutionsUseCase(repo entity.InstitutionRepository, users entity.UserRepository, clock Clock, log *zap.Logger) *ImportInstitutionsUseCase {
	return &ImportInstitutionsUseCase{Repo: repo, Users: users, Clock: clock, Log: log}
}

func (uc *ImportInstitutionsUseCase) Execute(ctx context.Context, p entity.Principal, filename string, data []byte) (*ImportReport, error) {
	if err := authorize(p, entity.RoleAdmin, entity.RoleSales); err != nil {
		return nil, err
	}

	table, err := spreadsheet.Read(filename, data)
	if err != nil {
		if errors.Is(err, spreadsheet.ErrUnsupportedFormat) || errors.Is(err, spreadsheet.ErrEmpty) {
			return nil, &DomainError{Code: CodeUnsupportedFile, Message: err.Error()}
		}
		return nil, validationFailed([]ValidationError{{Field: "file", Message: err.Error()}})
	}

	cols := resolveImportColumns(table)
	if _, ok := cols["name"]; !ok {
		return nil, validationFailed([]ValidationError{{Field: "file", Message: "missing required column: name"}})
	}

	owners := map[string]*entity.User{}
	report := &ImportReport{Total: len(table.Rows), Rows: make([]ImportRow, 0, len(table.Rows))}
	for i, cells := range table.Rows {
		row := importRow{cells: cells, cols: cols}
		result := ImportRow{Line: i + 2, Name: cleanText(row.get("name"))}

		if result.Name == "" {
			result.Skipped = true
			result.Reason = "empty name"
			report.Skipped++
			report.Rows = append(report.Rows, result)
			continue
		}

		inst, defaults := uc.buildInstitution(ctx, p, row, owners)
		result.Defaults = defaults
		if err := uc.Repo.Create(ctx, inst); err != nil {
			uc.Log.Warn("import row failed", zap.Int("line", result.Line), zap.Error(err))
			result.Skipped = true
			result.Reason = err.Error()
			report.Skipped++
			report.Rows = append(report.Rows, result)
			continue
		}

		result.InstitutionID = inst.ID
		report.Created++
		report.Rows = append(report.Rows, result)
	}

	uc.Log.Info("institutions imported",
		zap.String("file", filename),
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.String("by", p.Username))
	return report, nil
}

func (uc *ImportInstitutionsUseCase) buildInstitution(ctx context.Context, p entity.Principal, row importRow, owners map[string]*entity.User) (*entity.Institution, []string) {
	var defaults []string
	fallback := func(field, value, def string) string {
		if value == "" {
			defaults = append(defaults, field)
			return def
		}
		return value
	}

	contact := func(prefix string) entity.Contact {
		return entity.Contact{
			Name:  fallback(prefix+"_name", cleanText(row.get(prefix+"_name")), placeholderContactName),
			Email: fallback(prefix+"_email", strings.ToLower(row.get(prefix+"_email")), placeholderContactEmail),
			Phone: fallback(prefix+"_phone", row.get(prefix+"_phone"), placeholderContactPhone),
		}
	}

	now := uc.Clock.now()
	inst := entity.NewInstitution(cleanText(row.get("name")), contact("rector"), contact("counterpart"), now)
	today := uc.Clock.Today()
	inst.FirstContact = today
	inst.LastInteraction = &today

	inst.Website = row.get("website")
	if c := cleanText(row.get("country")); c != "" {
		inst.Country = c
	} else {
		defaults = append(defaults, "country")
	}
	inst.City = cleanText(row.get("city"))
	inst.Address = cleanText(row.get("address"))
	inst.Observations = cleanText(row.get("observations"))

	if n, ok := parseCount(row.get("num_teachers")); ok {
		inst.NumTeachers = n
	} else if row.get("num_teachers") != "" {
		defaults = append(defaults, "num_teachers")
	}
	if n, ok := parseCount(row.get("num_students")); ok {
		inst.NumStudents = n
	} else if row.get("num_students") != "" {
		defaults = append(defaults, "num_students")
	}
	if v, ok := parseAmount(row.get("avg_fee")); ok {
		inst.AvgFee = v
	} else if row.get("avg_fee") != "" {
		defaults = append(defaults, "avg_fee")
	}
	if v, ok := parseAmount(row.get("proposal_value")); ok {
		inst.ProposalValue = v
	} else if row.get("proposal_value") != "" {
		defaults = append(defaults, "proposal_value")
	}

	if m, err := entity.ParseMedium(row.get("initial_contact_medium")); err == nil && m != entity.MediumPipeline {
		inst.InitialContactMedium = m
	} else {
		defaults = append(defaults, "initial_contact_medium")
	}
	if s, err := entity.ParseStage(row.get("stage")); err == nil {
		inst.Stage = s
	} else {
		defaults = append(defaults, "stage")
	}
	if s, err := entity.ParseSubstage(row.get("substage")); err == nil {
		inst.Substage = s
	} else {
		defaults = append(defaults, "substage")
	}
	if prog, ok := entity.ParseProgram(row.get("program_proposed")); ok {
		inst.ProgramProposed = prog
	} else {
		defaults = append(defaults, "program_proposed")
	}

	if d, err := optionalDate(row.get("contract_start")); err == nil {
		inst.ContractStart = d
	}
	if d, err := optionalDate(row.get("contract_end")); err == nil {
		inst.ContractEnd = d
	}
	if inst.ContractStart != nil && inst.ContractEnd != nil && inst.ContractEnd.Before(*inst.ContractStart) {
		inst.ContractEnd = nil
		defaults = append(defaults, "contract_end")
	}

	if username := row.get("owner"); username != "" {
		if u := uc.lookupOwner(ctx, username, owners); u != nil {
			inst.OwnerID = &u.ID
			inst.OwnerName = u.FullName
		} else {
			defaults = append(defaults, "owner")
		}
	}
	if inst.OwnerID == nil && p.Role == entity.RoleSales {
		owner := p.UserID
		inst.OwnerID = &owner
		inst.OwnerName = p.FullName
	}

	return inst, defaults
}

// lookupOwner resolves a username once per import. Unknown names map to nil.
func (uc *ImportInstitutionsUseCase) lookupOwner(ctx context.Context, username string, cache map[string]*entity.User) *entity.User {
	key := strings.ToLower(username)
	if u, ok := cache[key]; ok {
		return u
	}
	u, err := uc.Users.FindByUsername(ctx, username)
	if err != nil || !u.Active {
		if err != nil && !errors.Is(err, entity.ErrNotFound) {
			uc.Log.Warn("owner lookup failed", zap.String("username", username), zap.Error(err))
		}
		u = nil
	}
	cache[key] = u
	return u
}

type importRow struct {
	cells []string
	cols  map[string]int
}

func (r importRow) get(field string) string {
	i, ok := r.cols[field]
	if !ok || i >= len(r.cells) {
		return ""
	}
	v := strings.TrimSpace(r.cells[i])
	if strings.EqualFold(v, "nan") || strings.EqualFold(v, "null") {
		return ""
	}
	return v
}

func resolveImportColumns(t *spreadsheet.Table) map[string]int {
	cols := make(map[string]int, len(importColumns))
	for field, names := range importColumns {
		for _, name := range names {
			if i := t.ColumnIndex(name); i >= 0 {
				cols[field] = i
				break
			}
		}
	}
	return cols
}

// parseCount accepts whole numbers, including "12.0" as written by spreadsheets.
func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func parseAmount(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
