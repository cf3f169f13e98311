package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"collabcanvas/canvas"
)

// Canvas pixels are taken at 96 dpi.
const pxToMM = 25.4 / 96

// writePDF draws ops in render order as vector lines on an A4 landscape
// page. Eraser strokes are painted white.
func writePDF(w io.Writer, ops []canvas.Operation) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCreator("collabcanvas", true)
	pdf.AddPage()
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	for _, op := range ops {
		r, g, b := 255, 255, 255
		if op.Tool != canvas.ToolEraser {
			r, g, b = parseHexColor(op.Color)
		}
		width := float64(op.Size) * pxToMM
		pdf.SetDrawColor(r, g, b)
		pdf.SetFillColor(r, g, b)
		pdf.SetLineWidth(width)

		switch len(op.Points) {
		case 0:
		case 1:
			p := op.Points[0]
			pdf.Circle(p[0]*pxToMM, p[1]*pxToMM, width/2, "F")
		default:
			for i := 1; i < len(op.Points); i++ {
				from, to := op.Points[i-1], op.Points[i]
				pdf.Line(from[0]*pxToMM, from[1]*pxToMM, to[0]*pxToMM, to[1]*pxToMM)
			}
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// parseHexColor accepts #rgb and #rrggbb. Anything else is black.
func parseHexColor(s string) (int, int, int) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

func exportHandler(cv *canvas.Canvas) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="canvas.pdf"`)
		if err := writePDF(w, cv.Snapshot()); err != nil {
			log.Printf("Error exporting canvas: %v", err)
			http.Error(w, "export failed", http.StatusInternalServerError)
		}
	}
}
