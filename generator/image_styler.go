package generator

import (
	"context"
	"encoding/json"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/notify"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// StylerStore is the persistence slice the image styler depends on.
type StylerStore interface {
	PersonasByCode() (map[string]string, error)
	UpdatePersonaImageStyle(personaID string, style string) error
}

// ImageStyler runs the art-director prompt once a day: the model proposes a
// fresh visual style per persona and the styles are stored on the persona
// rows. A failed run keeps yesterday's styles and only alerts the admin.
type ImageStyler struct {
	store     StylerStore
	pool      *ai.CredentialPool
	newClient func(cred ai.Credential) ai.TextClient
	notifier  notify.Notifier
	prompt    string
}

func NewImageStyler(
	s StylerStore,
	pool *ai.CredentialPool,
	newClient func(cred ai.Credential) ai.TextClient,
	n notify.Notifier,
	prompt string,
) *ImageStyler {
	return &ImageStyler{store: s, pool: pool, newClient: newClient, notifier: n, prompt: prompt}
}

type personaStyle struct {
	PersonaCode      string `json:"persona_code"`
	ImagePromptStyle string `json:"image_prompt_style"`
}

// Run refreshes the per-persona image styles. Returns the number of personas
// updated.
func (s *ImageStyler) Run(ctx context.Context) (int, error) {
	styles, err := s.requestStyles(ctx)
	if err != nil {
		Logger.Log.Error("image style generation failed: ", err)
		s.alert("Image styler could not obtain fresh styles from the model. Yesterday's styles stay in effect.")
		return 0, nil
	}

	personasByCode, err := s.store.PersonasByCode()
	if err != nil {
		return 0, errors.Wrap(err, "fail to load personas")
	}

	updated := 0
	for _, style := range styles {
		personaID, known := personasByCode[style.PersonaCode]
		if !known || style.ImagePromptStyle == "" {
			Logger.Log.Warnf("skipping malformed style entry for persona %q", style.PersonaCode)
			continue
		}
		if err := s.store.UpdatePersonaImageStyle(personaID, style.ImagePromptStyle); err != nil {
			Logger.Log.Errorf("fail to update image style for persona %s: %v", style.PersonaCode, err)
			continue
		}
		updated++
	}

	Logger.Log.Infof("image styles refreshed for %d/%d personas", updated, len(styles))
	return updated, nil
}

// requestStyles rotates the credential pool until a call yields a non-empty
// style list where every entry names a persona.
func (s *ImageStyler) requestStyles(ctx context.Context) ([]personaStyle, error) {
	styles := []personaStyle{}
	err := s.pool.Do(ctx, func(ctx context.Context, cred ai.Credential) error {
		raw, err := s.newClient(cred).Generate(ctx, ai.GenerateRequest{
			Prompt:      s.prompt,
			WantJSON:    true,
			Temperature: 1.0,
		})
		if err != nil {
			return err
		}

		candidate := []personaStyle{}
		if err := json.Unmarshal([]byte(raw), &candidate); err != nil {
			return errors.Wrap(err, "fail to parse style payload")
		}
		if len(candidate) == 0 {
			return errors.New("model returned no styles")
		}
		styles = candidate
		return nil
	})
	return styles, err
}

func (s *ImageStyler) alert(message string) {
	if err := s.notifier.Notify(message); err != nil {
		Logger.Log.Error("fail to deliver styler alert: ", err)
	}
}
