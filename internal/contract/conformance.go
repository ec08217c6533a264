package contract

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/clock"
	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/store"
)

// Version — версия sidecar-контракта, которую проверяет этот пакет.
const Version = "execution-task/v1"

// PayloadKind — вид payload протокола.
type PayloadKind string

const (
	PayloadClaimRequest PayloadKind = "claim-request"
	PayloadHeartbeat    PayloadKind = "heartbeat"
	PayloadAppendLogs   PayloadKind = "append-logs"
	PayloadUpdateStatus PayloadKind = "update-status"
	PayloadComplete     PayloadKind = "complete"
)

// payloadKinds — все виды payload в детерминированном порядке.
var payloadKinds = []PayloadKind{
	PayloadClaimRequest,
	PayloadHeartbeat,
	PayloadAppendLogs,
	PayloadUpdateStatus,
	PayloadComplete,
}

//go:embed schemas/*.json
var schemaFS embed.FS

// ValidationResult — результат проверки одного payload.
type ValidationResult struct {
	Kind   PayloadKind `json:"kind"`
	Valid  bool        `json:"valid"`
	Errors []string    `json:"errors,omitempty"`
}

// ConformanceService валидирует payloads sidecar-протокола против
// встроенных JSON-схем контракта.
type ConformanceService struct {
	store   store.Store
	clock   clock.Clock
	logger  *slog.Logger
	schemas map[PayloadKind]*jsonschema.Schema
}

// ConformanceConfig — конфигурация ConformanceService.
type ConformanceConfig struct {
	// Store — record store для отчётов self-test (опционально;
	// nil — SelfTest с persist вернёт ошибку).
	Store store.Store

	// Clock — источник времени (default: системные часы).
	Clock clock.Clock

	// Logger — логгер.
	Logger *slog.Logger
}

// NewConformance создаёт ConformanceService, компилируя встроенные схемы.
func NewConformance(cfg ConformanceConfig) (*ConformanceService, error) {
	c := cfg.Clock
	if c == nil {
		c = clock.System()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	compiler := jsonschema.NewCompiler()
	schemas := make(map[PayloadKind]*jsonschema.Schema, len(payloadKinds))
	for _, kind := range payloadKinds {
		name := "schemas/" + string(kind) + ".json"
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		schemas[kind] = schema
	}

	return &ConformanceService{
		store:   cfg.Store,
		clock:   c,
		logger:  logger,
		schemas: schemas,
	}, nil
}

// Kinds возвращает поддерживаемые виды payload.
func (s *ConformanceService) Kinds() []PayloadKind {
	kinds := make([]PayloadKind, len(payloadKinds))
	copy(kinds, payloadKinds)
	return kinds
}

// Validate проверяет один payload против схемы его вида.
// Невалидный payload — не ошибка вызова: детали идут в Errors.
func (s *ConformanceService) Validate(kind PayloadKind, payload []byte) (*ValidationResult, error) {
	schema, ok := s.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("unknown payload kind %q", kind)
	}

	result := &ValidationResult{Kind: kind}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		result.Errors = []string{"malformed JSON: " + err.Error()}
		return result, nil
	}

	if err := schema.Validate(doc); err != nil {
		result.Errors = flattenValidationError(err)
		return result, nil
	}

	result.Valid = true
	return result, nil
}

// ValidateBatch проверяет несколько payloads одного вида.
func (s *ConformanceService) ValidateBatch(kind PayloadKind, payloads [][]byte) ([]ValidationResult, error) {
	results := make([]ValidationResult, 0, len(payloads))
	for _, payload := range payloads {
		result, err := s.Validate(kind, payload)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// flattenValidationError собирает листовые причины ошибки валидации
// в плоский отсортированный список сообщений.
func flattenValidationError(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	var messages []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			messages = append(messages, e.Error())
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	sort.Strings(messages)
	return messages
}
