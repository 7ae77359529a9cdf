package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/services"
	"github.com/ewilliams-labs/cadence/internal/worker"
)

// allowedExtensions lists the upload types accepted by POST /analyze.
var allowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// Analyze handles POST /analyze?preset=fast|full&include_instruments=&include_segments=
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	preset, err := domain.ParsePreset(q.Get("preset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "preset must be fast or full")
		return
	}
	includeInstruments, err := parseBool(q.Get("include_instruments"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "include_instruments must be a boolean")
		return
	}
	includeSegments, err := parseBool(q.Get("include_segments"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "include_segments must be a boolean")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		writeErrorWithCode(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type: %q", ext), errCodeUnsupportedFormat)
		return
	}

	jobID := uuid.NewString()
	log := h.logger.With(zap.String("job_id", jobID), zap.String("file", name))

	inPath := filepath.Join(h.cfg.TmpDir, jobID+"_"+name)
	if err := saveUpload(inPath, file); err != nil {
		log.Error("failed to store upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer func() {
		if err := os.Remove(inPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove upload", zap.Error(err))
		}
	}()

	reply, err := h.pool.Submit(r.Context(), services.AnalyzeRequest{
		JobID:              jobID,
		InputPath:          inPath,
		Filename:           name,
		Preset:             preset,
		IncludeInstruments: includeInstruments,
		IncludeSegments:    includeSegments,
	})
	if err != nil {
		if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrStopped) {
			writeErrorWithCode(w, http.StatusServiceUnavailable, "analysis queue is full, retry later", errCodeQueueFull)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var res worker.Result
	select {
	case res = <-reply:
	case <-r.Context().Done():
		log.Info("client went away before analysis finished")
		return
	}

	if res.Err != nil {
		switch {
		case errors.Is(res.Err, services.ErrDecode):
			writeErrorWithCode(w, http.StatusUnprocessableEntity, res.Err.Error(), errCodeDecodeFailed)
		case r.Context().Err() != nil:
			log.Info("analysis canceled", zap.Error(res.Err))
		default:
			log.Error("analysis failed", zap.Error(res.Err))
			writeError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, res.Value)
}

func saveUpload(path string, src io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func parseBool(raw string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseBool(raw)
}
