// Package certificate lays out participation and winner diplomas as single-page PDFs.
package certificate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"

	"conference/internal/domain/winner"
)

// Page geometry in points (A4 landscape).
const (
	PageWidth   = 842.0
	PageHeight  = 595.0
	borderInset = 25.0
	crestHeight = 90.0
)

type rgb struct{ r, g, b int }

var (
	colorBlue  = rgb{18, 46, 102}
	colorGold  = rgb{242, 199, 51}
	colorWhite = rgb{255, 255, 255}
)

// Background tints for winner diplomas, keyed by medal.
var medalTints = map[string]rgb{
	winner.MedalGold:    {122, 94, 12},
	winner.MedalSilver:  {88, 96, 110},
	winner.MedalBronze:  {112, 64, 30},
	winner.MedalNeutral: colorBlue,
}

// Layout holds the institutional texts printed on every diploma.
type Layout struct {
	Institution    string
	City           string
	SignatureLeft  string
	SignatureRight string
	Crest          []byte // PNG; nil omits the crest
}

// DefaultLayout returns the texts used when configuration leaves them unset.
func DefaultLayout() Layout {
	return Layout{
		Institution:    "UNIVERSIDAD MARIANO GÁLVEZ DE GUATEMALA",
		City:           "Guatemala",
		SignatureLeft:  "Coordinador del Congreso",
		SignatureRight: "Decano de la Facultad de Ingeniería",
	}
}

// LoadCrest reads the crest image. A missing file is not an error and yields nil.
func LoadCrest(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read crest %s: %w", path, err)
	}
	return b, nil
}

// Renderer produces diploma PDFs. It is safe for concurrent use.
type Renderer struct {
	layout Layout
}

// NewRenderer creates a Renderer, filling empty layout texts from DefaultLayout.
func NewRenderer(layout Layout) *Renderer {
	def := DefaultLayout()
	if layout.Institution == "" {
		layout.Institution = def.Institution
	}
	if layout.City == "" {
		layout.City = def.City
	}
	if layout.SignatureLeft == "" {
		layout.SignatureLeft = def.SignatureLeft
	}
	if layout.SignatureRight == "" {
		layout.SignatureRight = def.SignatureRight
	}
	return &Renderer{layout: layout}
}

// Render lays out a participation diploma.
// PRE: name and activity are non-empty
// POST: Returns a one-page PDF or the rendering error
func (r *Renderer) Render(name, activity, dateText string) ([]byte, error) {
	return r.render(page{
		background: colorBlue,
		title:      "DIPLOMA DE PARTICIPACIÓN",
		name:       name,
		sentence:   fmt.Sprintf("Por su valiosa participación en la actividad \"%s\".", activity),
		dateText:   dateText,
	})
}

// RenderWinner lays out a recognition diploma tinted by placement.
// Placements outside 1..3 get the neutral background and no medal caption.
// PRE: name and activity are non-empty
// POST: Returns a one-page PDF or the rendering error
func (r *Renderer) RenderWinner(name, activity, dateText string, placement, year int) ([]byte, error) {
	caption := winner.PlacementCaption(placement)
	sentence := fmt.Sprintf("Por su destacada participación en la competencia \"%s\" (%d).", activity, year)
	if caption != "" {
		sentence = fmt.Sprintf("Por obtener el %s en la competencia \"%s\" (%d).", strings.ToLower(caption), activity, year)
	}
	return r.render(page{
		background: medalTints[winner.Medal(placement)],
		title:      "DIPLOMA DE RECONOCIMIENTO",
		caption:    caption,
		name:       name,
		sentence:   sentence,
		dateText:   dateText,
	})
}

type page struct {
	background rgb
	title      string
	caption    string
	name       string
	sentence   string
	dateText   string
}

func (r *Renderer) render(p page) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(p.title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFillColor(p.background.r, p.background.g, p.background.b)
	pdf.Rect(0, 0, PageWidth, PageHeight, "F")
	pdf.SetDrawColor(colorGold.r, colorGold.g, colorGold.b)
	pdf.SetLineWidth(4)
	pdf.Rect(borderInset, borderInset, PageWidth-2*borderInset, PageHeight-2*borderInset, "D")

	if len(r.layout.Crest) > 0 {
		info := pdf.RegisterImageOptionsReader("crest", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(r.layout.Crest))
		if pdf.Ok() && info != nil {
			wd, ht := info.Extent()
			w := crestHeight * wd / ht
			pdf.ImageOptions("crest", PageWidth/2-w/2, 45, w, crestHeight, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
		// A crest that cannot be decoded is dropped, the diploma is still produced.
		pdf.ClearError()
	}

	centered := func(text, style string, size float64, c rgb, baseline float64) {
		pdf.SetFont("Helvetica", style, size)
		pdf.SetTextColor(c.r, c.g, c.b)
		s := tr(text)
		pdf.Text(PageWidth/2-pdf.GetStringWidth(s)/2, baseline, s)
	}

	centered(r.layout.Institution, "B", 18, colorGold, 170)
	centered("Otorga el presente", "", 14, colorWhite, 210)
	centered(p.title, "B", 24, colorGold, 245)
	if p.caption != "" {
		centered(p.caption, "B", 16, colorWhite, 268)
	}
	centered(strings.ToUpper(p.name), "B", 22, colorWhite, 300)
	centered(p.sentence, "", 14, colorWhite, 335)
	centered(fmt.Sprintf("%s, %s", r.layout.City, p.dateText), "", 12, colorWhite, 370)

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(colorWhite.r, colorWhite.g, colorWhite.b)
	pdf.Text(120, PageHeight-100, "__________________________")
	pdf.Text(PageWidth-320, PageHeight-100, "__________________________")
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(145, PageHeight-85, tr(r.layout.SignatureLeft))
	pdf.Text(PageWidth-315, PageHeight-85, tr(r.layout.SignatureRight))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render diploma: %w", err)
	}
	return buf.Bytes(), nil
}
