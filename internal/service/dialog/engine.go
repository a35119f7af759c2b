// Package dialog implements the conversation engine: a session-scoped state
// machine that turns free-text utterances into staged transactions (orders,
// meeting bookings) and delegates everything unstructured to a free-form
// responder.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ovc-dev/ovc/backend/internal/analysis/intent"
	"github.com/ovc-dev/ovc/backend/internal/analysis/match"
	"github.com/ovc-dev/ovc/backend/internal/analysis/timeexpr"
	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
	"github.com/ovc-dev/ovc/backend/internal/model/conversation"
	"github.com/ovc-dev/ovc/backend/internal/model/record"
	"github.com/ovc-dev/ovc/backend/internal/service/inventory"
	"github.com/ovc-dev/ovc/backend/internal/service/session"
)

// FallbackReply answers free-form turns when no responder is configured.
const FallbackReply = "I'm not quite sure about that. Can you clarify?"

// NoInputReply re-prompts when a voice turn produced no transcript.
const NoInputReply = "I didn't catch that, could you repeat?"

// FarewellReply closes a conversation after an exit keyword.
const FarewellReply = "Goodbye! Have a great day!"

const streamBuffer = 8

// Sink durably stores completed transactions.
type Sink interface {
	SaveOrder(ctx context.Context, o record.Order) error
	SaveMeeting(ctx context.Context, m record.Meeting) error
}

// TokenStream is an in-flight free-form reply. Recv returns io.EOF after the
// final token; Close releases the producer early.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// Responder generates free-form replies from the turn history. A nil
// Responder downgrades free-form turns to FallbackReply.
type Responder interface {
	StreamingEnabled() bool
	Generate(ctx context.Context, history []conversation.Turn, utterance string) (string, error)
	StreamReply(ctx context.Context, history []conversation.Turn, utterance string) (TokenStream, error)
}

// Engine drives the dialogue state machine. One Engine serves all sessions;
// per-session ordering comes from the session store's turn lock.
type Engine struct {
	catalog   *catalog.Store
	sessions  *session.Store
	ledger    *inventory.Ledger
	sink      Sink
	responder Responder
	log       *zap.Logger
}

// NewEngine wires the engine to its collaborators. responder may be nil.
func NewEngine(store *catalog.Store, sessions *session.Store, ledger *inventory.Ledger, sink Sink, responder Responder, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		catalog:   store,
		sessions:  sessions,
		ledger:    ledger,
		sink:      sink,
		responder: responder,
		log:       log,
	}
}

// Greeting opens a new conversation.
func (e *Engine) Greeting() string {
	return fmt.Sprintf("Welcome to %s! How may I assist you today?", e.catalog.Profile().StoreName)
}

// ResponderConfigured reports whether free-form turns have a live responder
// behind them instead of the fallback reply.
func (e *Engine) ResponderConfigured() bool {
	return e.responder != nil
}

// IsExit reports whether the utterance ends the conversation.
func IsExit(utterance string) bool {
	lowered := strings.ToLower(utterance)
	return strings.Contains(lowered, "exit") || strings.Contains(lowered, "goodbye")
}

// Reply processes one utterance for the session and returns the reply stream.
// Turns for the same session are serialized in arrival order; the caller
// bounds a hanging turn through ctx. On any returned error the session's
// state, slots and history are unchanged, so the turn can be retried.
func (e *Engine) Reply(ctx context.Context, sessionID, utterance string) (*Reply, error) {
	if strings.TrimSpace(utterance) == "" {
		return nil, ErrEmptyUtterance
	}

	sess, release, err := e.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(strings.TrimSpace(utterance))

	detected := intent.None
	if sess.State == conversation.StateIdle {
		detected = intent.Detect(lowered)
		if detected == intent.None {
			// The free-form producer owns the turn lock until the
			// stream drains or is abandoned.
			return e.freeformTurn(ctx, sess, release, utterance)
		}
	}

	reply, err := e.structuredTurn(ctx, sess, detected, utterance, lowered)
	release()
	return reply, err
}

func (e *Engine) structuredTurn(ctx context.Context, sess *conversation.Session, detected intent.Intent, utterance, lowered string) (*Reply, error) {
	switch sess.State {
	case conversation.StateMeetingRequested:
		return e.meetingTurn(ctx, sess, utterance, lowered)
	case conversation.StateConfirmProduct:
		return e.confirmTurn(sess, utterance, lowered), nil
	case conversation.StateRequestQuantity:
		return e.quantityTurn(ctx, sess, utterance)
	default:
		return e.idleTurn(sess, detected, utterance, lowered), nil
	}
}

// idleTurn handles the structured idle intents. Priority order: meeting,
// order, store info, product list, return.
func (e *Engine) idleTurn(sess *conversation.Session, detected intent.Intent, utterance, lowered string) *Reply {
	switch detected {
	case intent.Meeting:
		sess.State = conversation.StateMeetingRequested
		sess.Slots.SelectedStaff = nil
		reply := fmt.Sprintf("Available staff members are: %s. Please specify who you'd like to meet with and your preferred time.", e.staffNames())
		return e.finishTurn(sess, utterance, reply)

	case intent.Order:
		name, ok := match.Closest(lowered, e.ledger.Names())
		if !ok {
			return e.finishTurn(sess, utterance, "We don’t have that item. Could you repeat or try something else?")
		}
		sess.State = conversation.StateConfirmProduct
		sess.Slots.Product = name
		return e.finishTurn(sess, utterance, fmt.Sprintf("Did you mean %s? Please say 'yes' or 'no'.", name))

	case intent.StoreInfo:
		return e.finishTurn(sess, utterance, e.catalog.Profile().StoreDescription)

	case intent.ProductList:
		reply := fmt.Sprintf("We have: %s. Which one interests you?", strings.Join(e.ledger.Names(), ", "))
		return e.finishTurn(sess, utterance, reply)

	case intent.Return:
		return e.finishTurn(sess, utterance, "Would you like to return a product? Please provide the name.")

	default:
		return e.finishTurn(sess, utterance, FallbackReply)
	}
}

// meetingTurn covers both meeting sub-phases: staff selection while no staff
// member is stored in the slots, then time matching against that member's
// availability.
func (e *Engine) meetingTurn(ctx context.Context, sess *conversation.Session, utterance, lowered string) (*Reply, error) {
	if sess.Slots.SelectedStaff == nil {
		staff := e.catalog.Staff()
		for i := range staff {
			if !strings.Contains(lowered, strings.ToLower(staff[i].Name)) {
				continue
			}
			sess.Slots.SelectedStaff = &staff[i]
			reply := fmt.Sprintf("I found %s. Their available times are: %s. Please specify your preferred time.",
				staff[i].Name, strings.Join(staff[i].Availability, ", "))
			return e.finishTurn(sess, utterance, reply), nil
		}
		reply := fmt.Sprintf("I couldn't find that staff member. Available staff are: %s. Please try again.", e.staffNames())
		return e.finishTurn(sess, utterance, reply), nil
	}

	member := sess.Slots.SelectedStaff
	if extracted, ok := timeexpr.Extract(utterance); ok {
		for _, slot := range member.Availability {
			if timeexpr.Normalize(slot) != extracted {
				continue
			}
			meeting := record.NewMeeting(member.Name, slot)
			if err := e.sink.SaveMeeting(ctx, meeting); err != nil {
				e.log.Error("meeting record write failed",
					zap.String("session", sess.ID), zap.String("staff", member.Name), zap.Error(err))
				return nil, &CollaboratorError{Op: "records", Err: err}
			}
			e.log.Info("meeting booked",
				zap.String("session", sess.ID), zap.String("staff", member.Name), zap.String("time", slot))
			reply := fmt.Sprintf("Great! I've scheduled your meeting with %s at %s.", member.Name, slot)
			sess.Reset()
			return e.finishTurn(sess, utterance, reply), nil
		}
	}

	reply := fmt.Sprintf("I couldn't match that time. Available times for %s are: %s. Please specify your preferred time.",
		member.Name, strings.Join(member.Availability, ", "))
	return e.finishTurn(sess, utterance, reply), nil
}

func (e *Engine) confirmTurn(sess *conversation.Session, utterance, lowered string) *Reply {
	if strings.Contains(lowered, "yes") {
		sess.State = conversation.StateRequestQuantity
		return e.finishTurn(sess, utterance, fmt.Sprintf("Great! How many %ss would you like?", sess.Slots.Product))
	}

	sess.Reset()
	return e.finishTurn(sess, utterance, "Okay, let’s try again. What would you like to order?")
}

func (e *Engine) quantityTurn(ctx context.Context, sess *conversation.Session, utterance string) (*Reply, error) {
	quantity, err := strconv.Atoi(strings.TrimSpace(utterance))
	if err != nil || quantity < 0 {
		return e.finishTurn(sess, utterance, "Please provide a valid number for the quantity."), nil
	}

	product := sess.Slots.Product
	if err := e.ledger.TryReserve(product, quantity); err != nil {
		var insufficient *inventory.InsufficientStockError
		if errors.As(err, &insufficient) {
			reply := fmt.Sprintf("Sorry, only %d %s(s) available.", insufficient.Available, product)
			return e.finishTurn(sess, utterance, reply), nil
		}
		return nil, fmt.Errorf("dialog: reserve %s: %w", product, err)
	}

	order := record.NewOrder(product, quantity)
	if err := e.sink.SaveOrder(ctx, order); err != nil {
		// Stock is already decremented at this point; the missing record
		// is a known consistency gap, not silently rolled back.
		e.log.Error("order record write failed",
			zap.String("session", sess.ID), zap.String("product", product), zap.Int("quantity", quantity), zap.Error(err))
		return nil, &CollaboratorError{Op: "records", Err: err}
	}

	e.log.Info("order placed",
		zap.String("session", sess.ID), zap.String("product", product), zap.Int("quantity", quantity))
	reply := fmt.Sprintf("Order placed for %d %s(s). Anything else?", quantity, product)
	sess.Reset()
	return e.finishTurn(sess, utterance, reply), nil
}

// freeformTurn delegates to the responder. Non-streaming replies commit
// before returning; streaming replies commit in the producer goroutine once
// the stream has fully drained.
func (e *Engine) freeformTurn(ctx context.Context, sess *conversation.Session, release func(), utterance string) (*Reply, error) {
	if e.responder == nil {
		reply := e.finishTurn(sess, utterance, FallbackReply)
		release()
		return reply, nil
	}

	if !e.responder.StreamingEnabled() {
		text, err := e.responder.Generate(ctx, sess.History, utterance)
		if err != nil {
			release()
			e.log.Error("free-form generation failed", zap.String("session", sess.ID), zap.Error(err))
			return nil, &CollaboratorError{Op: "responder", Err: err}
		}
		reply := e.finishTurn(sess, utterance, text)
		release()
		return reply, nil
	}

	r := newReply(streamBuffer)
	go func() {
		defer release()

		full, err := e.pumpStream(ctx, r, sess, utterance)
		switch {
		case err == nil:
			// History records the turn only after a complete drain, so a
			// truncated reply is never replayed as if it finished.
			sess.Append(conversation.RoleUser, utterance)
			sess.Append(conversation.RoleAssistant, full)
		case errors.Is(err, errReplyClosed), errors.Is(err, context.Canceled):
			// Consumer walked away; the turn records nothing.
		default:
			e.log.Error("free-form stream failed", zap.String("session", sess.ID), zap.Error(err))
			// The consumer is still draining (it did not Close), so the
			// failure must reach it instead of a clean EOF.
			select {
			case r.ch <- fragment{err: err}:
			case <-r.done:
			}
		}
		close(r.ch)
	}()

	return r, nil
}

// pumpStream forwards responder tokens into the reply and returns the joined
// text after io.EOF.
func (e *Engine) pumpStream(ctx context.Context, r *Reply, sess *conversation.Session, utterance string) (string, error) {
	stream, err := e.responder.StreamReply(ctx, sess.History, utterance)
	if err != nil {
		return "", &CollaboratorError{Op: "responder", Err: err}
	}
	defer stream.Close()

	var full strings.Builder
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return "", &CollaboratorError{Op: "responder", Err: err}
		}
		if token == "" {
			continue
		}

		select {
		case r.ch <- fragment{text: token}:
			full.WriteString(token)
		case <-r.done:
			return "", errReplyClosed
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// finishTurn commits a literal turn: the user utterance and the assistant
// reply land in history together.
func (e *Engine) finishTurn(sess *conversation.Session, utterance, reply string) *Reply {
	sess.Append(conversation.RoleUser, utterance)
	sess.Append(conversation.RoleAssistant, reply)
	return literalReply(reply)
}

func (e *Engine) staffNames() string {
	staff := e.catalog.Staff()
	names := make([]string, 0, len(staff))
	for _, s := range staff {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}
