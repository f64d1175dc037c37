package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-lead-bot/internal/domain"
	"telegram-lead-bot/internal/domain/model"
	"telegram-lead-bot/internal/domain/ports/adapter"
	"telegram-lead-bot/internal/domain/ports/repository"
	"telegram-lead-bot/internal/infra/i18n"
	"telegram-lead-bot/internal/infra/logging"
	"telegram-lead-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const (
	cmdStart = "/start"
	cmdReset = "/reset"

	lockKeyPrefix = "lead_lock:"

	// settleTimeout bounds the replies and cleanup after a submission.
	settleTimeout = 15 * time.Second
)

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

// ConversationUseCase drives the lead form: /start, name, email, submit.
type ConversationUseCase interface {
	// HandleMessage runs one turn for chatID. Only state store failures
	// (and a busy lock) are returned; delivery problems are absorbed by the
	// notifier and the sink.
	HandleMessage(ctx context.Context, chatID, text string) error
}

type conversationUC struct {
	states         repository.StateRepository
	notifier       adapter.Notifier
	sink           adapter.SubmissionSink
	texts          *i18n.Translator
	operatorChatID string

	locker  repository.TurnLocker
	lockTTL time.Duration

	dev bool
	now func() time.Time
	log *zerolog.Logger
}

func NewConversationUseCase(
	states repository.StateRepository,
	notifier adapter.Notifier,
	sink adapter.SubmissionSink,
	texts *i18n.Translator,
	operatorChatID string,
	logger *zerolog.Logger,
) *conversationUC {
	return &conversationUC{
		states:         states,
		notifier:       notifier,
		sink:           sink,
		texts:          texts,
		operatorChatID: strings.TrimSpace(operatorChatID),
		now:            time.Now,
		log:            logger,
	}
}

// WithLocker serializes turns per chat through locker. A nil locker turns
// locking off.
func (c *conversationUC) WithLocker(locker repository.TurnLocker, ttl time.Duration) *conversationUC {
	c.locker = locker
	c.lockTTL = ttl
	return c
}

// WithDevLogging disables PII redaction in logs.
func (c *conversationUC) WithDevLogging(dev bool) *conversationUC {
	c.dev = dev
	return c
}

func (c *conversationUC) HandleMessage(ctx context.Context, chatID, text string) error {
	defer logging.TraceDuration(c.log, "ConversationUC.HandleMessage")()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chatID == "" {
		return domain.ErrInvalidArgument
	}

	if c.locker != nil {
		key := lockKeyPrefix + chatID
		token, err := c.locker.TryLock(ctx, key, c.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrTurnInProgress) {
				return err
			}
			return fmt.Errorf("acquire turn lock: %w", err)
		}
		defer func() {
			// the turn context may already be cancelled
			uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := c.locker.Unlock(uctx, key, token); err != nil {
				c.log.Warn().Err(err).Str("chat_id", chatID).Msg("failed to release turn lock")
			}
		}()
	}

	state, err := c.states.Get(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load conversation state: %w", err)
	}
	from := state.CurrentStep()

	switch {
	case text == cmdReset:
		if err := c.states.Delete(ctx, chatID); err != nil {
			return fmt.Errorf("reset conversation: %w", err)
		}
		c.notifier.Send(ctx, chatID, c.texts.T(i18n.KeyResetDone))
		c.transition(from, model.StepNone)
		return nil

	case strings.HasPrefix(text, cmdStart):
		return c.start(ctx, chatID, from)
	}

	switch from {
	case model.StepAwaitingName:
		return c.acceptName(ctx, chatID, text)
	case model.StepAwaitingEmail:
		return c.acceptEmail(ctx, chatID, state, text)
	default:
		// no record, or a step this version does not know
		c.notifier.Send(ctx, chatID, c.texts.T(i18n.KeyUseStart))
		return nil
	}
}

func (c *conversationUC) start(ctx context.Context, chatID string, from model.ConversationStep) error {
	if err := c.states.Delete(ctx, chatID); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	c.notifier.Send(ctx, chatID, c.texts.T(i18n.KeyWelcome))

	next := model.NewAwaitingName(chatID)
	next.UpdatedAt = c.now().UTC()
	if err := c.states.Set(ctx, next); err != nil {
		return fmt.Errorf("save conversation state: %w", err)
	}
	c.transition(from, model.StepAwaitingName)
	return nil
}

func (c *conversationUC) acceptName(ctx context.Context, chatID, name string) error {
	c.notifier.Send(ctx, chatID, c.texts.T(i18n.KeyAskEmail))

	next := model.NewAwaitingEmail(chatID, name)
	next.UpdatedAt = c.now().UTC()
	if err := c.states.Set(ctx, next); err != nil {
		return fmt.Errorf("save conversation state: %w", err)
	}
	c.transition(model.StepAwaitingName, model.StepAwaitingEmail)
	return nil
}

func (c *conversationUC) acceptEmail(ctx context.Context, chatID string, state *model.ConversationState, email string) error {
	if state.Corrupt() {
		c.log.Warn().Err(domain.ErrCorruptState).Str("chat_id", chatID).Msg("awaiting email without a name, resetting")
		if err := c.states.Delete(ctx, chatID); err != nil {
			return fmt.Errorf("reset corrupt conversation: %w", err)
		}
		c.notifier.Send(ctx, chatID, c.texts.T(i18n.KeyNameMissing))
		c.transition(model.StepAwaitingEmail, model.StepNone)
		return nil
	}

	lead := model.NewLeadSubmission(chatID, state.Name, email, c.now())
	c.log.Info().
		Str("submission_id", lead.ID.String()).
		Str("chat_id", chatID).
		Str("email", logging.Redact(email, c.dev)).
		Msg("submitting lead")

	submitted := c.sink.Submit(ctx, lead)

	// the sheet call may have used up the turn deadline; the record must
	// still be cleared or the next message would be submitted again
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if submitted {
		c.notifier.Send(sctx, chatID, c.texts.T(i18n.KeyLeadAccepted, lead.Name))
		if c.operatorChatID != "" {
			c.notifier.Send(sctx, c.operatorChatID, c.texts.T(i18n.KeyOperatorNewLead, lead.Name, lead.Email))
		}
	} else {
		c.notifier.Send(sctx, chatID, c.texts.T(i18n.KeyLeadFailed))
	}

	if err := c.states.Delete(sctx, chatID); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	c.transition(model.StepAwaitingEmail, model.StepNone)
	return nil
}

func (c *conversationUC) transition(from, to model.ConversationStep) {
	metrics.IncTransition(from.String(), to.String())
}
