package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"assessment-service/internal/domain"
)

type rgb struct{ r, g, b int }

var (
	colorPrimary   = rgb{0x00, 0x9C, 0xD9}
	colorAccent    = rgb{0x2D, 0x9C, 0x2D}
	colorText      = rgb{0x75, 0x75, 0x74}
	colorHeading   = rgb{0x1B, 0x3A, 0x57}
	colorNeedle    = rgb{0x1E, 0x29, 0x3B}
	colorCard      = rgb{0xF8, 0xF9, 0xFA}
	colorScoreCard = rgb{0xF0, 0xF9, 0xFF}
	colorRule      = rgb{0xE5, 0xE5, 0xE5}
	colorWhite     = rgb{0xFF, 0xFF, 0xFF}

	segmentColors = map[domain.MaturityBand]rgb{
		domain.BandUrgent:   {0xEF, 0x44, 0x44},
		domain.BandBasic:    {0xF9, 0x73, 0x16},
		domain.BandSolid:    {0xEA, 0xB3, 0x08},
		domain.BandAdvanced: {0x22, 0xC5, 0x5E},
	}
)

const (
	pageW    = 210.0
	pageH    = 297.0
	marginX  = 15.0
	contentW = pageW - 2*marginX
	footerH  = 22.0
)

// PDFRenderer renders documents to A4 PDF. Without FontPath the core Helvetica font is used
// and text is transliterated to cp1252, which covers English and French but not Arabic.
type PDFRenderer struct {
	FontPath     string
	BoldFontPath string
}

func NewPDFRenderer(fontPath, boldFontPath string) *PDFRenderer {
	return &PDFRenderer{FontPath: fontPath, BoldFontPath: boldFontPath}
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	doc    *Document
	family string
	tr     func(string) string
}

func (r *PDFRenderer) Render(ctx context.Context, doc *Document, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginX, marginX, marginX)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(doc.Brand.Title, true)
	pdf.SetAuthor(doc.Brand.Name, true)

	pw := &pdfWriter{pdf: pdf, doc: doc, family: "Helvetica"}
	if r.FontPath != "" {
		bold := r.BoldFontPath
		if bold == "" {
			bold = r.FontPath
		}
		pdf.AddUTF8Font("body", "", r.FontPath)
		pdf.AddUTF8Font("body", "B", bold)
		pw.family = "body"
		pw.tr = func(s string) string { return s }
	} else {
		pw.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf fonts: %w", err)
	}

	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pdf.AddPage()
		switch page.Kind {
		case PageCover:
			pw.cover()
		case PageSummary:
			pw.summary()
		case PageQuestionTable:
			pw.questions(page)
		}
		if page.Footer {
			pw.footer()
		}
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("pdf %s page: %w", page.Kind, err)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf output: %w", err)
	}
	return nil
}

func (w *pdfWriter) fill(c rgb) { w.pdf.SetFillColor(c.r, c.g, c.b) }
func (w *pdfWriter) text(c rgb) { w.pdf.SetTextColor(c.r, c.g, c.b) }
func (w *pdfWriter) draw(c rgb) { w.pdf.SetDrawColor(c.r, c.g, c.b) }

func (w *pdfWriter) font(style string, size float64) {
	w.pdf.SetFont(w.family, style, size)
}

func (w *pdfWriter) cell(x, y, width, h float64, s, align string) {
	w.pdf.SetXY(x, y)
	w.pdf.CellFormat(width, h, w.tr(s), "", 0, align, false, 0, "")
}

func (w *pdfWriter) multi(x, y, width, h float64, s, align string) float64 {
	w.pdf.SetXY(x, y)
	w.pdf.MultiCell(width, h, w.tr(s), "", align, false)
	return w.pdf.GetY()
}

// lines counts the wrapped lines MultiCell will produce for s. Widths are measured on the
// translated text so cp1252 bytes and UTF-8 runes are both looked up in the active font.
func (w *pdfWriter) lines(s string, width float64) int {
	wmax := width - 2*w.pdf.GetCellMargin()
	space := w.pdf.GetStringWidth(" ")
	n := 0
	for _, para := range strings.Split(w.tr(s), "\n") {
		n++
		used := 0.0
		for _, word := range strings.Fields(para) {
			ww := w.pdf.GetStringWidth(word)
			switch {
			case used == 0:
				used = ww
			case used+space+ww <= wmax:
				used += space + ww
			default:
				n++
				used = ww
			}
			for used > wmax && wmax > 0 {
				n++
				used -= wmax
			}
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

func (w *pdfWriter) cover() {
	b := w.doc.Brand
	if b.CoverImage != "" {
		w.pdf.ImageOptions(b.CoverImage, 0, 0, pageW, pageH, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		return
	}
	w.fill(colorPrimary)
	w.pdf.Rect(0, 0, pageW, pageH, "F")
	w.text(colorWhite)
	w.font("B", 26)
	w.multi(marginX, 95, contentW, 12, b.Title, "C")
	w.font("", 14)
	w.cell(marginX, 140, contentW, 8, w.doc.Labels.AssessmentResults, "C")
	w.font("B", 16)
	w.cell(marginX, 160, contentW, 8, w.doc.Respondent.Company, "C")
	w.font("", 11)
	w.cell(marginX, 170, contentW, 6, w.doc.GeneratedAt.Format("January 2, 2006"), "C")
	w.cell(marginX, pageH-30, contentW, 6, b.Tagline, "C")
}

func (w *pdfWriter) letterhead() float64 {
	b := w.doc.Brand
	w.fill(colorPrimary)
	w.pdf.Rect(0, 0, pageW, 42, "F")
	if b.LogoImage != "" {
		w.pdf.ImageOptions(b.LogoImage, pageW-marginX-28, 7, 28, 14, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}
	w.text(colorWhite)
	w.font("B", 18)
	w.cell(marginX, 8, contentW-30, 8, b.Name, "L")
	w.font("", 10)
	w.cell(marginX, 17, contentW-30, 5, b.Tagline, "L")
	w.draw(colorWhite)
	w.pdf.SetLineWidth(0.3)
	w.pdf.Line(marginX, 27, pageW-marginX, 27)
	w.font("B", 14)
	w.cell(marginX, 30, contentW*0.7, 8, b.Title, "L")
	w.font("", 10)
	w.cell(marginX+contentW*0.7, 30, contentW*0.3, 8, w.doc.GeneratedAt.Format("01/02/2006"), "R")
	return 50
}

func (w *pdfWriter) sectionTitle(y float64, title string) float64 {
	w.text(colorAccent)
	w.font("B", 13)
	w.cell(marginX, y, contentW, 7, title, "L")
	w.draw(colorAccent)
	w.pdf.SetLineWidth(0.6)
	w.pdf.Line(marginX, y+8, pageW-marginX, y+8)
	return y + 12
}

func (w *pdfWriter) summary() {
	l := w.doc.Labels
	r := w.doc.Respondent
	y := w.letterhead()

	y = w.sectionTitle(y, l.PersonalInfo)
	w.fill(colorCard)
	w.pdf.Rect(marginX, y, contentW, 30, "F")
	w.fill(colorPrimary)
	w.pdf.Rect(marginX, y, 1.4, 30, "F")
	info := [][2]string{{l.Name, r.Name}, {l.Email, r.Email}, {l.Company, r.Company}, {l.Position, r.Position}}
	for i, kv := range info {
		rowY := y + 3 + float64(i)*6.5
		w.text(colorText)
		w.font("B", 10)
		w.cell(marginX+5, rowY, 40, 6, kv[0]+":", "L")
		w.text(colorAccent)
		w.cell(marginX+45, rowY, contentW-50, 6, kv[1], "L")
	}
	y += 36

	y = w.sectionTitle(y, l.AssessmentResults)
	w.fill(colorScoreCard)
	w.draw(colorPrimary)
	w.pdf.SetLineWidth(0.5)
	w.pdf.Rect(marginX, y, contentW, 62, "FD")
	s := w.doc.Score
	w.text(colorText)
	w.font("", 9)
	w.cell(marginX+5, y+3, 60, 5, l.Score, "L")
	w.text(colorAccent)
	w.font("B", 26)
	w.cell(marginX+5, y+10, 60, 12, strconv.Itoa(s.TotalPoints)+" / "+strconv.Itoa(s.MaxPoints), "L")
	w.text(colorPrimary)
	w.font("B", 22)
	w.cell(marginX+5, y+25, 60, 10, strconv.Itoa(s.Percentage)+"%", "L")
	w.text(colorHeading)
	w.font("B", 12)
	w.cell(marginX+5, y+38, 60, 7, w.doc.Band.Title(), "L")
	w.gauge(marginX+contentW-50, y+42, 30)
	y += 66

	w.text(colorPrimary)
	w.font("B", 10)
	y = w.multi(marginX, y, contentW, 4.6, w.doc.Narrative, "L") + 4

	w.fill(colorCard)
	w.font("", 8)
	discH := 8 + float64(w.lines(l.DisclaimerText, contentW-8))*3.8
	w.pdf.Rect(marginX, y, contentW, discH, "F")
	w.fill(colorPrimary)
	w.pdf.Rect(marginX, y, 1.4, discH, "F")
	w.text(colorHeading)
	w.font("B", 10)
	w.cell(marginX+5, y+1.5, contentW-8, 5, l.Disclaimer, "L")
	w.text(colorText)
	w.font("", 8)
	w.multi(marginX+5, y+7, contentW-8, 3.8, l.DisclaimerText, "L")
}

// gauge draws the four band arcs from 0 (left) to 100 (right) with a needle at the percentage.
func (w *pdfWriter) gauge(cx, cy, radius float64) {
	for _, seg := range w.doc.Segments {
		c := segmentColors[seg.Band]
		w.draw(c)
		w.pdf.SetLineWidth(7)
		w.pdf.Arc(cx, cy, radius, radius, 0, 180-float64(seg.To)*1.8, 180-float64(seg.From)*1.8, "D")

		mid := (180 - float64(seg.From+seg.To)*0.9) * math.Pi / 180
		lx := cx + (radius+7)*math.Cos(mid)
		ly := cy - (radius+7)*math.Sin(mid)
		w.text(colorNeedle)
		w.font("B", 7)
		w.cell(lx-9, ly-2, 18, 4, seg.Label, "C")
	}
	pct := w.doc.Score.Percentage
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	angle := (180 - float64(pct)*1.8) * math.Pi / 180
	w.draw(colorNeedle)
	w.fill(colorNeedle)
	w.pdf.SetLineWidth(1.1)
	w.pdf.Line(cx, cy, cx+(radius*0.8)*math.Cos(angle), cy-(radius*0.8)*math.Sin(angle))
	w.pdf.Circle(cx, cy, 1.8, "F")
}

func (w *pdfWriter) questions(page Page) {
	l := w.doc.Labels
	y := marginX + 5
	if page.TableHeader {
		y = w.sectionTitle(y, l.Details)
	}
	colW := contentW / 2
	if page.TableHeader {
		w.fill(colorAccent)
		w.pdf.Rect(marginX, y, contentW, 9, "F")
		w.text(colorWhite)
		w.font("B", 10)
		w.cell(marginX+3, y+1.5, colW-6, 6, l.Question, "L")
		w.cell(marginX+colW+3, y+1.5, colW-6, 6, l.Answer, "L")
		y += 9
	}
	const lineH = 4.4
	w.font("", 9)
	for _, row := range page.Rows {
		n := w.lines(row.Question, colW-6)
		if m := w.lines(row.Answer, colW-6); m > n {
			n = m
		}
		h := float64(n)*lineH + 5
		if row.Number%2 == 0 {
			w.fill(colorCard)
		} else {
			w.fill(colorWhite)
		}
		w.pdf.Rect(marginX, y, contentW, h, "F")
		w.draw(colorRule)
		w.pdf.SetLineWidth(0.2)
		w.pdf.Line(marginX, y+h, pageW-marginX, y+h)
		w.pdf.Line(marginX+colW, y, marginX+colW, y+h)
		w.text(colorText)
		w.multi(marginX+3, y+2.5, colW-6, lineH, row.Question, "L")
		w.multi(marginX+colW+3, y+2.5, colW-6, lineH, row.Answer, "L")
		y += h
	}
	w.draw(colorPrimary)
	w.pdf.SetLineWidth(0.5)
	top := marginX + 5
	if page.TableHeader {
		top += 12
	}
	w.pdf.Rect(marginX, top, contentW, y-top, "D")
}

func (w *pdfWriter) footer() {
	b := w.doc.Brand
	y := pageH - footerH
	w.fill(colorText)
	w.pdf.Rect(0, y, pageW, footerH, "F")
	w.text(colorWhite)
	w.font("", 8)
	w.cell(marginX, y+5, contentW*0.65, 4, b.Copyright, "L")
	w.font("", 7)
	w.multi(marginX, y+10, contentW*0.65, 3.4, b.Description, "L")
	w.font("B", 8)
	w.cell(marginX+contentW*0.65, y+5, contentW*0.35, 4, b.Tagline, "R")
}
