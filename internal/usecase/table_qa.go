package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/infra/spreadsheet"
)

const tableSampleRows = 10

var sendEmailPattern = regexp.MustCompile(`(?i)manda un mail a ([\p{L}\d_\s]+) con el asunto: (.+?) y el mensaje: (.+)`)

var (
	massEmailKeywords = []string{
		"manda un email masivo", "enviar email masivo", "envía un email masivo",
		"manda un correo masivo", "enviar correo masivo", "envía un correo masivo",
		"manda un mail masivo", "enviar mail masivo", "envía un mail masivo",
		"email masivo a todos", "correo masivo a todos", "mail masivo a todos",
		"email masivo a los prospectos", "correo masivo a los prospectos", "mail masivo a los prospectos",
	}
	quickEmailKeywords = []string{"enviar email", "enviar mensaje"}
	countKeywords      = []string{
		"cuántas filas", "cuantas filas", "número de filas", "numero de filas",
		"cuántos registros", "cuantos registros", "número de registros", "numero de registros",
		"cuántos datos", "cuantos datos", "cuántos hay en la tabla", "cuantos hay en la tabla",
	}
	listKeywords = []string{
		"lista de", "correos", "emails", "direcciones de correo", "emails de",
		"correos electrónicos", "columna correo", "columna de correo", "columna de emails",
		"todos los registros de la columna", "todos los valores de la columna",
	}
	emailColumnKeywords = []string{"mail", "email", "correo", "e-mail", "e_mail", "e mail", "direccion", "contacto"}
)

// TableQAUseCase answers questions about an uploaded sheet. Row counts and
// email requests are resolved locally; everything else goes to the model
// with as little of the table as the question needs.
type TableQAUseCase struct {
	Chat ChatModel
	Log  *zap.Logger
}

func NewTableQAUseCase(chat ChatModel, log *zap.Logger) *TableQAUseCase {
	return &TableQAUseCase{Chat: chat, Log: log}
}

func (uc *TableQAUseCase) Ask(ctx context.Context, filename string, data []byte, in AskTableInput) (*TableAnswer, error) {
	if errs := validateStruct(in); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	table, err := spreadsheet.Read(filename, data)
	if err != nil {
		if errors.Is(err, spreadsheet.ErrUnsupportedFormat) || errors.Is(err, spreadsheet.ErrEmpty) {
			return nil, &DomainError{Code: CodeUnsupportedFile, Message: err.Error()}
		}
		return nil, validationFailed([]ValidationError{{Field: "file", Message: err.Error()}})
	}

	q := strings.ToLower(in.Question)
	out := &TableAnswer{Rows: len(table.Rows), Columns: table.Columns}

	if intent, warning := directEmail(table, in.Question); intent != nil {
		out.Kind = TableAnswerSendEmail
		out.Email = intent
		return out, nil
	} else if warning != "" {
		out.Warnings = append(out.Warnings, warning)
	}

	if containsAny(q, massEmailKeywords) || containsAny(q, quickEmailKeywords) {
		out.Kind = TableAnswerMassEmail
		if !containsAny(q, massEmailKeywords) {
			out.Kind = TableAnswerQuick
		}
		out.EmailColumns = emailColumns(table)
		if len(out.EmailColumns) == 0 {
			out.Warnings = append(out.Warnings, "No se detectó ninguna columna de emails en la tabla.")
		} else {
			col := table.ColumnIndex(out.EmailColumns[0])
			out.Email = &EmailIntent{
				EmailColumn: out.EmailColumns[0],
				Recipients:  uniqueEmails(table.Column(col)),
			}
		}
		return out, nil
	}

	if containsAny(q, countKeywords) {
		out.Kind = TableAnswerCount
		out.Answer = fmt.Sprintf("La tabla tiene %d filas.", len(table.Rows))
		return out, nil
	}

	if uc.Chat == nil || !uc.Chat.Configured() {
		return nil, errAssistantOff
	}

	prompt, note, err := buildTablePrompt(table, in.Question, in.FullTable)
	if err != nil {
		return nil, &TechnicalError{Code: CodeAI, Message: "failed to build prompt", Err: err}
	}
	answer, err := uc.Chat.Complete(ctx, "Eres un asistente que analiza tablas de prospectos comerciales.", prompt)
	if err != nil {
		return nil, &TechnicalError{Code: CodeAI, Message: "failed to query model", Err: err}
	}

	uc.Log.Debug("table question answered", zap.String("file", filename), zap.Int("rows", len(table.Rows)))
	out.Kind = TableAnswerModel
	out.Answer = answer
	out.Note = note
	return out, nil
}

// directEmail handles "manda un mail a X con el asunto: Y y el mensaje: Z",
// looking X up in the first name-like column.
func directEmail(t *spreadsheet.Table, question string) (*EmailIntent, string) {
	m := sendEmailPattern.FindStringSubmatch(question)
	if m == nil {
		return nil, ""
	}
	nameCol := firstColumn(t, "nombre", "name")
	emailCol := firstColumn(t, "mail", "email")
	if nameCol < 0 || emailCol < 0 {
		return nil, ""
	}

	person := strings.TrimSpace(m[1])
	needle := strings.ToLower(person)
	var recipients []string
	for _, row := range t.Rows {
		if strings.Contains(strings.ToLower(row[nameCol]), needle) && row[emailCol] != "" {
			recipients = append(recipients, row[emailCol])
		}
	}
	recipients = uniqueEmails(recipients)
	if len(recipients) == 0 {
		return nil, fmt.Sprintf("No se encontró a '%s' en la columna '%s'.", person, t.Columns[nameCol])
	}

	return &EmailIntent{
		Person:      person,
		Subject:     strings.TrimSpace(m[2]),
		Message:     strings.TrimSpace(m[3]),
		Recipients:  recipients,
		NameColumn:  t.Columns[nameCol],
		EmailColumn: t.Columns[emailCol],
	}, ""
}

// emailColumns lists columns whose name suggests an address, or whose first
// values look like one.
func emailColumns(t *spreadsheet.Table) []string {
	var out []string
	for i, c := range t.Columns {
		if containsAny(strings.ToLower(c), emailColumnKeywords) {
			out = append(out, c)
			continue
		}
		values := t.Column(i)
		if len(values) > 20 {
			values = values[:20]
		}
		for _, v := range values {
			if strings.Contains(v, "@") && strings.Contains(v, ".") {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func buildTablePrompt(t *spreadsheet.Table, question string, full bool) (prompt, note string, err error) {
	q := strings.ToLower(question)
	columns, err := json.Marshal(t.Columns)
	if err != nil {
		return "", "", err
	}

	var body string
	switch {
	case listColumn(t, q) >= 0:
		col := listColumn(t, q)
		values, err := json.MarshalIndent(t.Column(col), "", "  ")
		if err != nil {
			return "", "", err
		}
		note = fmt.Sprintf("Has solicitado todos los registros de la columna '%s'. Solo se ha enviado esa columna al modelo.", t.Columns[col])
		body = fmt.Sprintf("Tienes una tabla con las siguientes columnas: %s.\nA continuación tienes todos los valores de la columna '%s':\n%s\n%s\nResponde la siguiente pregunta del usuario sobre estos datos.",
			columns, t.Columns[col], values, note)

	default:
		rows, matchCol, matchVal := matchRows(t, q)
		if len(rows) > 0 {
			detected := fmt.Sprintf("Se ha detectado que tu pregunta se refiere a la fila donde '%s' = '%s'.", t.Columns[matchCol], matchVal)
			if col := mentionedColumn(t, q); col >= 0 {
				row := recordOf(t, rows[0])
				rowJSON, err := json.MarshalIndent(row, "", "  ")
				if err != nil {
					return "", "", err
				}
				note = detected + fmt.Sprintf(" Además, preguntas por la columna '%s'. Solo se ha enviado ese dato y la fila correspondiente.", t.Columns[col])
				body = fmt.Sprintf("Tienes una tabla con las siguientes columnas: %s.\nA continuación tienes el valor solicitado:\nColumna: %s\nValor: %s\nFila completa: %s\n%s\nResponde la siguiente pregunta del usuario sobre este dato.",
					columns, t.Columns[col], rows[0][col], rowJSON, note)
				break
			}
			records := make([]map[string]string, 0, len(rows))
			for _, r := range rows {
				records = append(records, recordOf(t, r))
			}
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return "", "", err
			}
			note = detected
			body = tableContext(columns, data, note)
			break
		}

		limit := tableSampleRows
		note = fmt.Sprintf("Solo se ha enviado una muestra de %d filas.", tableSampleRows)
		if full {
			limit = 0
			note = fmt.Sprintf("Se ha enviado toda la tabla (%d filas).", len(t.Rows))
		}
		data, err := json.MarshalIndent(t.Records(limit), "", "  ")
		if err != nil {
			return "", "", err
		}
		body = tableContext(columns, data, note)
	}

	return fmt.Sprintf("%s\n\nPregunta: %s\nRespuesta:", body, question), note, nil
}

func tableContext(columns, data []byte, note string) string {
	return fmt.Sprintf("Tienes una tabla con las siguientes columnas: %s.\nAquí tienes los datos:\n%s\n%s\nResponde la siguiente pregunta del usuario sobre estos datos.",
		columns, data, note)
}

// matchRows finds the first cell value quoted in the question and returns
// every row holding that value in the same column. Values shorter than three
// characters are ignored so numbers like "1" do not match every question.
func matchRows(t *spreadsheet.Table, q string) ([][]string, int, string) {
	for c := range t.Columns {
		seen := map[string]bool{}
		for _, row := range t.Rows {
			val := strings.ToLower(strings.TrimSpace(row[c]))
			if len(val) < 3 || seen[val] {
				continue
			}
			seen[val] = true
			if !strings.Contains(q, val) {
				continue
			}
			var rows [][]string
			for _, r := range t.Rows {
				if strings.ToLower(strings.TrimSpace(r[c])) == val {
					rows = append(rows, r)
				}
			}
			return rows, c, row[c]
		}
	}
	return nil, -1, ""
}

func mentionedColumn(t *spreadsheet.Table, q string) int {
	for i, c := range t.Columns {
		if c != "" && strings.Contains(q, strings.ToLower(c)) {
			return i
		}
	}
	return -1
}

func listColumn(t *spreadsheet.Table, q string) int {
	if !containsAny(q, listKeywords) {
		return -1
	}
	for i, c := range t.Columns {
		lc := strings.ToLower(c)
		if strings.Contains(q, lc) || strings.Contains(lc, "correo") || strings.Contains(lc, "mail") {
			return i
		}
	}
	return -1
}

func firstColumn(t *spreadsheet.Table, keywords ...string) int {
	for i, c := range t.Columns {
		if containsAny(strings.ToLower(c), keywords) {
			return i
		}
	}
	return -1
}

func recordOf(t *spreadsheet.Table, row []string) map[string]string {
	rec := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		rec[c] = row[i]
	}
	return rec
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
