package orchestrators

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	emailAdapter "conference/internal/adapters/email"
	"conference/internal/adapters/qr"
	domainActivity "conference/internal/domain/activity"
	domainDiploma "conference/internal/domain/diploma"
)

// Content IDs of inline images referenced from the HTML bodies.
const (
	qrContentID    = "qrimage"
	crestContentID = "crest"
)

// MailConfig carries the institution texts and links every outgoing email uses.
type MailConfig struct {
	Institution     string
	Event           string
	FrontendBaseURL string
	Crest           []byte // optional PNG shown in the header
}

// AttendanceLink returns the URL encoded in a registration's QR code.
func (c MailConfig) AttendanceLink(token string) string {
	return strings.TrimRight(c.FrontendBaseURL, "/") + "/#/asistencia?token=" + url.QueryEscape(token)
}

// mdRenderer converts the markdown body of each message. Raw HTML in input is omitted.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var mailShell = template.Must(template.New("mail").Parse(`<div style="font-family: Arial, sans-serif; color:#333; background:#f3f6fa; padding:25px; border-radius:12px;">
<div style="text-align:center; margin-bottom:25px;">
{{- if .CrestSrc}}<img src="{{.CrestSrc}}" alt="" style="width:120px;height:120px;"/>{{end}}
<h1 style="color:#0a3a82; margin:15px 0 5px;">{{.Institution}}</h1>
<h2 style="margin:5px 0 0;">{{.Event}}</h2>
</div>
<div style="background:#ffffff; border-radius:12px; padding:25px;">
{{.Body}}
{{- if .QRSrc}}
<div style="text-align:center;margin:15px 0;"><img src="{{.QRSrc}}" style="width:220px;height:220px;" alt="QR"/></div>
{{- end}}
{{- if .ActionURL}}
<div style="text-align:center;margin-top:15px;"><a href="{{.ActionURL}}" style="background:#0a3a82;color:white;padding:12px 30px;border-radius:6px;text-decoration:none;font-weight:bold;display:inline-block;">{{.ActionLabel}}</a></div>
{{- end}}
</div>
<p style="margin-top:25px; font-size:12px; color:#888; text-align:center;">© {{.Year}} {{.Institution}}</p>
</div>`))

type mailView struct {
	Institution string
	Event       string
	Body        template.HTML
	CrestSrc    template.URL
	QRSrc       template.URL
	ActionURL   string
	ActionLabel string
	Year        int
}

// mdEscaper neutralises markdown syntax in values interpolated into a body.
var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "!", `\!`,
)

func md(s string) string {
	return mdEscaper.Replace(s)
}

// composed is a rendered message ready to hand to a Sender.
type composed struct {
	Subject     string
	HTML        string
	Attachments []emailAdapter.Attachment
}

// compose renders markdown inside the branded shell and attaches the crest when configured.
func (c MailConfig) compose(subject, markdown string, view mailView, now time.Time) (composed, error) {
	var body bytes.Buffer
	if err := mdRenderer.Convert([]byte(markdown), &body); err != nil {
		return composed{}, fmt.Errorf("render mail body: %w", err)
	}
	view.Institution = c.Institution
	view.Event = c.Event
	view.Body = template.HTML(body.String())
	view.Year = now.Year()

	var attachments []emailAdapter.Attachment
	if len(c.Crest) > 0 {
		view.CrestSrc = template.URL("cid:" + crestContentID)
		attachments = append(attachments, emailAdapter.Attachment{
			Filename:    "escudo.png",
			ContentType: "image/png",
			Content:     c.Crest,
			ContentID:   crestContentID,
		})
	}

	var out bytes.Buffer
	if err := mailShell.Execute(&out, view); err != nil {
		return composed{}, fmt.Errorf("render mail shell: %w", err)
	}
	return composed{Subject: subject, HTML: out.String(), Attachments: attachments}, nil
}

// confirmationEmail builds the registration confirmation carrying the QR code inline.
// PRE: token is the registration's redemption token
// POST: Returns a message with the QR PNG attached under content-id "qrimage"
func (c MailConfig) confirmationEmail(fullName string, a domainActivity.Activity, token string, now time.Time) (composed, error) {
	link := c.AttendanceLink(token)
	png, err := qr.PNG(link)
	if err != nil {
		return composed{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Confirmación de inscripción\n\n")
	fmt.Fprintf(&b, "Estimado(a) **%s**,\n\n", md(fullName))
	fmt.Fprintf(&b, "Tu registro se ha completado exitosamente en la siguiente actividad:\n\n")
	fmt.Fprintf(&b, "### %s\n\n", md(a.Title))
	fmt.Fprintf(&b, "Fecha: **%s**\nHora: **%s**\nLugar: **%s**\n\n",
		md(orDefault(a.Day, "Fecha por confirmar")),
		md(orDefault(a.Hour, "Hora por confirmar")),
		md(orDefault(a.Location, "Lugar por confirmar")))
	fmt.Fprintf(&b, "Escanea este código al ingresar al evento o usa el botón para confirmar asistencia.\n")

	msg, err := c.compose("Confirmación de inscripción - "+a.Title, b.String(), mailView{
		QRSrc:       template.URL("cid:" + qrContentID),
		ActionURL:   link,
		ActionLabel: "Confirmar asistencia",
	}, now)
	if err != nil {
		return composed{}, err
	}
	msg.Attachments = append(msg.Attachments, emailAdapter.Attachment{
		Filename:    "qr.png",
		ContentType: "image/png",
		Content:     png,
		ContentID:   qrContentID,
	})
	return msg, nil
}

// diplomaEmail builds the message carrying a participation or winner diploma.
// resend switches the wording used when an admin re-sends a stored diploma.
func (c MailConfig) diplomaEmail(fullName, activityTitle string, pdf []byte, resend bool, now time.Time) (composed, error) {
	subject := "Diploma de participación - " + activityTitle
	intro := "Adjuntamos tu diploma de participación en la actividad:"
	if resend {
		subject = "Reenvío de diploma - " + activityTitle
		intro = "Te reenviamos tu diploma de participación en la actividad:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hola **%s**,\n\n%s\n\n**%s**\n\n", md(fullName), intro, md(activityTitle))
	fmt.Fprintf(&b, "Puedes conservarlo o imprimirlo desde el archivo PDF adjunto.\n\nSaludos cordiales,\n**Equipo de %s**\n", md(c.Event))

	msg, err := c.compose(subject, b.String(), mailView{}, now)
	if err != nil {
		return composed{}, err
	}
	msg.Attachments = append(msg.Attachments, pdfAttachment(fullName, pdf))
	return msg, nil
}

// winnerEmail builds the recognition message for a published winner.
func (c MailConfig) winnerEmail(fullName, activityTitle, placement string, pdf []byte, now time.Time) (composed, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## ¡Felicidades, %s!\n\n", md(fullName))
	if placement != "" {
		fmt.Fprintf(&b, "Obtuviste el **%s** en **%s**.\n\n", md(strings.ToLower(placement)), md(activityTitle))
	} else {
		fmt.Fprintf(&b, "Fuiste reconocido(a) en **%s**.\n\n", md(activityTitle))
	}
	fmt.Fprintf(&b, "Adjuntamos tu diploma de reconocimiento.\n")

	msg, err := c.compose("Diploma de reconocimiento - "+activityTitle, b.String(), mailView{}, now)
	if err != nil {
		return composed{}, err
	}
	msg.Attachments = append(msg.Attachments, pdfAttachment(fullName, pdf))
	return msg, nil
}

func pdfAttachment(fullName string, pdf []byte) emailAdapter.Attachment {
	return emailAdapter.Attachment{
		Filename:    domainDiploma.FileName(fullName),
		ContentType: "application/pdf",
		Content:     pdf,
	}
}

func (m composed) request(to string) emailAdapter.SendRequest {
	return emailAdapter.SendRequest{
		To:          []string{to},
		Subject:     m.Subject,
		HTML:        m.HTML,
		Attachments: m.Attachments,
	}
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
