package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/gpacalc/internal/calc"
	"github.com/KaramelBytes/gpacalc/internal/gpa"
	"github.com/KaramelBytes/gpacalc/internal/report"
	"github.com/KaramelBytes/gpacalc/internal/table"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// handleCalc stages the uploaded "file" part to a private temp file, computes
// both metrics from it and responds with the rounded pair.
func (s *Server) handleCalc(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		_ = render.Render(w, r, errPayloadTooLarge(s.opts.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			_ = render.Render(w, r, errPayloadTooLarge(s.opts.MaxUploadBytes))
		case errors.Is(err, http.ErrMissingFile):
			_ = render.Render(w, r, errMissingFile())
		default:
			_ = render.Render(w, r, errInvalidRequest(err))
		}
		return
	}
	defer file.Close()

	path, err := s.stage(file, hdr)
	if path != "" {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				s.log.Warn("remove staged upload", zap.String("path", path), zap.Error(rmErr))
			}
		}()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = render.Render(w, r, errPayloadTooLarge(s.opts.MaxUploadBytes))
			return
		}
		s.log.Error("stage upload", zap.Error(err))
		_ = render.Render(w, r, errInternal())
		return
	}

	res, err := calc.FromFile(path, s.calc)
	if err != nil {
		var le *table.LoadError
		if errors.As(err, &le) {
			le.Source = hdr.Filename
			_ = render.Render(w, r, errMissingColumns(le))
			return
		}
		_ = render.Render(w, r, errInvalidTable(err))
		return
	}

	s.observe(res)
	s.log.Info("computed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("filename", hdr.Filename),
		zap.Int("rows", res.Totals.Rows),
		zap.Bool("gpa_defined", res.GPA.Defined()),
		zap.Bool("ratio_defined", res.Ratio.Defined()),
	)
	render.JSON(w, r, report.New(res))
}

// stage copies the upload to <UploadDir>/gpacalc-<uuid><ext>. The returned
// path is non-empty whenever a file was created, even on error.
func (s *Server) stage(src multipart.File, hdr *multipart.FileHeader) (string, error) {
	dir := s.opts.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if ext == "" {
		ext = ".csv"
	}
	path := filepath.Join(dir, "gpacalc-"+uuid.NewString()+ext)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return path, fmt.Errorf("copy upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return path, fmt.Errorf("close staged upload: %w", err)
	}
	return path, nil
}

func (s *Server) observe(res gpa.Result) {
	if !res.GPA.Defined() {
		s.metrics.undefined.WithLabelValues("gpa").Inc()
	}
	if !res.Ratio.Defined() {
		s.metrics.undefined.WithLabelValues("ratio").Inc()
	}
}
