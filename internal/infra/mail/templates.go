package mail

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"
)

var (
	followUpHTML = htmltemplate.Must(htmltemplate.New("followup").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<h2 style="color: #2E86AB;">Seguimiento Comercial - Muyu</h2>
<p>Estimado/a <strong>{{.ContactName}}</strong>,</p>
<p>Espero que se encuentre muy bien. Me comunico con usted en representación de <strong>Muyu</strong>
para hacer seguimiento a nuestra propuesta para <strong>{{.InstitutionName}}</strong>.</p>
<div style="background-color: #f8f9fa; padding: 20px; border-left: 4px solid #2E86AB; margin: 20px 0;">
<h3 style="margin-top: 0; color: #2E86AB;">INFORMACIÓN DE LA PROPUESTA</h3>
<ul style="list-style: none; padding: 0;">
<li><strong>Institución:</strong> {{.InstitutionName}}</li>
<li><strong>Programa:</strong> {{.Program}}</li>
<li><strong>Etapa:</strong> {{.Stage}}</li>
<li><strong>Último contacto:</strong> {{.LastInteraction}}</li>
</ul>
</div>
<p>Me gustaría coordinar una reunión para revisar los detalles de nuestra propuesta y definir los próximos pasos.</p>
<p>¿Cuándo sería un buen momento para una reunión? Estoy disponible para adaptarme a su agenda.</p>
{{if .SenderEmail}}<p><strong>Contacto directo:</strong> {{.SenderEmail}}</p>{{end}}
<p style="color: #666; font-size: 14px;">Cordiales saludos,<br><strong>Equipo Comercial Muyu</strong></p>
</body>
</html>`))

	followUpText = template.Must(template.New("followup_text").Parse(`*Seguimiento Comercial - Muyu*

Hola {{.ContactName}}, espero que se encuentre muy bien.

Me comunico para hacer seguimiento a nuestra propuesta para *{{.InstitutionName}}*.

*INFORMACIÓN DE LA PROPUESTA:*
• *Institución:* {{.InstitutionName}}
• *Programa:* {{.Program}}
• *Etapa actual:* {{.Stage}}

¿Cuándo podríamos coordinar una reunión para revisar los detalles y resolver cualquier duda?

Saludos cordiales,
*Equipo Comercial Muyu*`))

	taskHTML = htmltemplate.Must(htmltemplate.New("task").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<h2 style="color: #2E86AB;">Nueva Tarea Asignada - CRM Muyu</h2>
<p>Hola <strong>{{.AssigneeName}}</strong>,</p>
<p>Se te ha asignado una nueva tarea en el CRM de Muyu:</p>
<ul style="list-style: none; padding: 0;">
<li><strong>Título:</strong> {{.Title}}</li>
<li><strong>Institución:</strong> {{.InstitutionName}}</li>
<li><strong>Fecha de vencimiento:</strong> {{.DueDate}}</li>
<li><strong>Estado:</strong> {{if .Done}}Completada{{else}}Pendiente{{end}}</li>
</ul>
<p><strong>Notas:</strong> {{if .Notes}}{{.Notes}}{{else}}Sin notas adicionales{{end}}</p>
<p>Por favor, revisa esta tarea en el CRM y toma las acciones necesarias.</p>
</body>
</html>`))

	taskText = template.Must(template.New("task_text").Parse(`*Nueva Tarea Asignada - CRM Muyu*

Hola {{.AssigneeName}},

*DETALLES DE LA TAREA:*
• *Título:* {{.Title}}
• *Institución:* {{.InstitutionName}}
• *Vencimiento:* {{.DueDate}}
• *Estado:* {{if .Done}}Completada{{else}}Pendiente{{end}}

*NOTAS:*
{{if .Notes}}{{.Notes}}{{else}}Sin notas adicionales{{end}}

Por favor revisa esta tarea en el CRM y toma las acciones necesarias.`))

	staleDigestHTML = htmltemplate.Must(htmltemplate.New("stale").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
<p>Hola {{.RecipientName}},</p>
<p>Hay {{len .Leads}} instituciones sin contacto hace más de {{.Days}} días:</p>
<table cellpadding="4" style="border-collapse: collapse;">
<tr><th align="left">Institución</th><th align="left">Etapa</th><th align="left">Último contacto</th><th align="left">Responsable</th></tr>
{{range .Leads}}<tr><td>{{.Name}}</td><td>{{.Stage}}</td><td>{{.LastInteraction}}</td><td>{{.Owner}}</td></tr>
{{end}}</table>
</body>
</html>`))
)

// FollowUp renders the commercial follow-up email.
func FollowUp(d FollowUpData) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := followUpHTML.Execute(&buf, d); err != nil {
		return "", "", err
	}
	return "Seguimiento Comercial - " + d.InstitutionName, buf.String(), nil
}

// FollowUpText renders the same follow-up as a chat message.
func FollowUpText(d FollowUpData) (string, error) {
	var buf bytes.Buffer
	err := followUpText.Execute(&buf, d)
	return buf.String(), err
}

func TaskAssigned(d TaskAssignedData) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := taskHTML.Execute(&buf, d); err != nil {
		return "", "", err
	}
	return "Nueva Tarea Asignada: " + d.Title, buf.String(), nil
}

func TaskAssignedText(d TaskAssignedData) (string, error) {
	var buf bytes.Buffer
	err := taskText.Execute(&buf, d)
	return buf.String(), err
}

func StaleDigest(d StaleDigestData) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := staleDigestHTML.Execute(&buf, d); err != nil {
		return "", "", err
	}
	return "Leads sin contacto - CRM Muyu", buf.String(), nil
}
