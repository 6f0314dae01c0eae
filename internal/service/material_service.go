package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/client"
	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/repository"
)

// Material errors.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds the upload size limit")
	ErrEmptySource         = errors.New("source text is empty")
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

// MaterialService turns uploaded study material into question bank
// entries: extract text, generate groups, store them.
type MaterialService struct {
	extract      *client.ExtractClient
	gen          *client.GenClient
	questionRepo *repository.QuestionRepository
	cfg          *config.Config
	log          zerolog.Logger
}

// NewMaterialService creates a new MaterialService.
func NewMaterialService(
	extract *client.ExtractClient,
	gen *client.GenClient,
	questionRepo *repository.QuestionRepository,
	cfg *config.Config,
	log zerolog.Logger,
) *MaterialService {
	return &MaterialService{
		extract:      extract,
		gen:          gen,
		questionRepo: questionRepo,
		cfg:          cfg,
		log:          log.With().Str("component", "material_service").Logger(),
	}
}

// ExtractText validates an upload and returns its plain text. Plain
// text files skip the extraction service entirely.
func (s *MaterialService) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedFileType
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", ErrFileTooLarge
	}
	if ext == ".txt" {
		return string(data), nil
	}
	return s.extract.Extract(ctx, filename, data)
}

// Generate produces question groups of the requested types from source
// text and stores them in the bank. Returns how many groups landed per
// type.
func (s *MaterialService) Generate(ctx context.Context, source string, types []model.GroupType, perType int) (map[model.GroupType]int, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}
	if perType <= 0 {
		perType = 1
	}

	stored := make(map[model.GroupType]int, len(types))
	for _, t := range types {
		groups, err := s.gen.Generate(ctx, &client.GenRequest{Type: t, Source: source, Count: perType})
		if err != nil {
			return stored, err
		}
		for i := range groups {
			groups[i].Type = t
			if err := s.questionRepo.Create(ctx, &groups[i]); err != nil {
				return stored, err
			}
			stored[t]++
		}
	}
	s.log.Info().Interface("stored", stored).Msg("question groups generated")
	return stored, nil
}
