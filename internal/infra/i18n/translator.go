package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Message keys used by the conversation and the operator channel.
const (
	KeyResetDone          = "reset_done"
	KeyWelcome            = "welcome"
	KeyAskEmail           = "ask_email"
	KeyNameMissing        = "name_missing"
	KeyLeadAccepted       = "lead_accepted"
	KeyLeadFailed         = "lead_failed"
	KeyUseStart           = "use_start"
	KeyOperatorNewLead    = "operator_new_lead"
	KeyOperatorSheetError = "operator_sheet_error"
	KeyOperatorCritical   = "operator_critical"
)

var requiredKeys = []string{
	KeyResetDone, KeyWelcome, KeyAskEmail, KeyNameMissing, KeyLeadAccepted,
	KeyLeadFailed, KeyUseStart, KeyOperatorNewLead, KeyOperatorSheetError, KeyOperatorCritical,
}

type Translator struct {
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys and checks that
// every message the bot sends is present.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}

	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	if missing := t.missing(requiredKeys); len(missing) > 0 {
		return nil, fmt.Errorf("translation file %s is missing keys %v", filePath, missing)
	}
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the message for key, formatted with args. Unknown keys are
// returned verbatim.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) missing(keys []string) []string {
	var out []string
	for _, k := range keys {
		if _, ok := t.translations[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
