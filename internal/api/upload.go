package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"voice-emotion-go/internal/logger"
	"voice-emotion-go/internal/metrics"
	"voice-emotion-go/internal/pipeline"
	"voice-emotion-go/internal/types"
)

const (
	multipartMemory = 8 << 20

	endpointUpload = "upload"
	endpointMP3    = "upload_mp3"
)

const (
	msgNoAudio      = "No audio provided"
	msgNoPhone      = "Phone number is required"
	msgEmptyAudio   = "No audio recorded"
	msgPipelineOK   = "Pipeline executed successfully"
	msgNoTranscript = "Could not transcribe audio"
	msgNoMP3        = `No mp3 file provided (expected form field "file" or "mp3")`
	msgNoFileChosen = "No selected file"
	msgMP3Stored    = "MP3 received and stored as last_received.mp3"
)

// handleUpload normalizes the recording, runs the pipeline and reports the
// transcript and sentiment. A notification failure does not change the
// response.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r).WithField("handler", "upload")

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.fail(w, r, endpointUpload, parseFormError(err, msgNoAudio))
		return
	}
	defer r.MultipartForm.RemoveAll()

	fh, present := formFile(r.MultipartForm, "audio_file")
	if !present {
		s.fail(w, r, endpointUpload, clientError(msgNoAudio))
		return
	}
	phone := strings.TrimSpace(r.PostFormValue("phone"))
	if phone == "" {
		s.fail(w, r, endpointUpload, clientError(msgNoPhone))
		return
	}
	if fh == nil || fh.Size == 0 {
		s.fail(w, r, endpointUpload, clientError(msgEmptyAudio))
		return
	}

	inPath, err := saveTemp(s.cfg.ScratchDir, "upload-*.webm", fh)
	if inPath != "" {
		defer removeQuietly(inPath)
	}
	if err != nil {
		s.fail(w, r, endpointUpload, processingError(err))
		return
	}
	outPath, err := reserveTemp(s.cfg.ScratchDir, "upload-*.wav")
	if outPath != "" {
		defer removeQuietly(outPath)
	}
	if err != nil {
		s.fail(w, r, endpointUpload, processingError(err))
		return
	}

	start := time.Now()
	if err := s.normalizer.Normalize(r.Context(), inPath, outPath); err != nil {
		s.fail(w, r, endpointUpload, processingError(err))
		return
	}
	metrics.ObserveStage("normalize", start)

	res, err := s.runner.Run(r.Context(), outPath, phone)
	if err != nil {
		var se *pipeline.StageError
		if errors.As(err, &se) && !se.Analytic() {
			log.WithField("error", se.Err.Error()).Warn("notification not delivered; response unaffected")
		} else {
			s.fail(w, r, endpointUpload, processingError(unwrapStage(err)))
			return
		}
	}

	text := res.Transcript.Text
	if text == "" {
		text = msgNoTranscript
	}
	metrics.RecordUpload(endpointUpload, http.StatusOK)
	writeJSON(w, http.StatusOK, types.UploadResponse{
		Success:       true,
		Message:       msgPipelineOK,
		Transcription: text,
		Sentiment:     res.Sentiment.Label,
	})
}

// handleUploadMP3 stores the posted file verbatim at the sink path.
func (s *Server) handleUploadMP3(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.fail(w, r, endpointMP3, parseFormError(err, msgNoMP3))
		return
	}
	defer r.MultipartForm.RemoveAll()

	fh, present := formFile(r.MultipartForm, "file")
	if fh == nil {
		var alt bool
		fh, alt = formFile(r.MultipartForm, "mp3")
		present = present || alt
	}
	if !present {
		s.fail(w, r, endpointMP3, clientError(msgNoMP3))
		return
	}
	if fh == nil || fh.Filename == "" {
		s.fail(w, r, endpointMP3, clientError(msgNoFileChosen))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(w, r, endpointMP3, processingError(err))
		return
	}
	defer f.Close()

	path, err := s.sink.Store(f)
	if err != nil {
		s.fail(w, r, endpointMP3, processingError(err))
		return
	}
	requestLog(r).WithField("stored_path", path).WithField("bytes", fh.Size).Info("mp3 stored")
	metrics.RecordUpload(endpointMP3, http.StatusOK)
	writeJSON(w, http.StatusOK, types.StoreResponse{
		Success:    true,
		Message:    msgMP3Stored,
		StoredPath: path,
	})
}

// formFile looks a field up in the parsed form. A part sent with an empty
// filename is parsed as a plain value; it counts as present with no file.
func formFile(form *multipart.Form, field string) (*multipart.FileHeader, bool) {
	if fhs := form.File[field]; len(fhs) > 0 {
		return fhs[0], true
	}
	_, ok := form.Value[field]
	return nil, ok
}

func saveTemp(dir, pattern string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return dst.Name(), fmt.Errorf("save upload: %w", err)
	}
	return dst.Name(), dst.Close()
}

func reserveTemp(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	return f.Name(), f.Close()
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.New().Component("api").WithField("path", path).WithField("error", err.Error()).Warn("temp file not removed")
	}
}

func unwrapStage(err error) error {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		return se.Err
	}
	return err
}
