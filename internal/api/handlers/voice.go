package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/glamhair/patglam-agent/internal/dialog"
	"github.com/glamhair/patglam-agent/internal/store"
	"github.com/glamhair/patglam-agent/pkg/ai"
	"github.com/glamhair/patglam-agent/pkg/errors"
	"github.com/glamhair/patglam-agent/pkg/logger"
	"github.com/glamhair/patglam-agent/pkg/metrics"
	"github.com/glamhair/patglam-agent/pkg/webhook"
)

// turnResponse tells the voice gateway what to say and whether to keep
// listening or hang up.
type turnResponse struct {
	Say    string `json:"say"`
	Action string `json:"action"`
}

const (
	actionListen = "listen"
	actionHangup = "hangup"
)

// HandleTurn processes one caller utterance and returns the agent's reply.
// POST /voice/turn (form-encoded, signed by the telephony provider).
func (h *Handler) HandleTurn(c *gin.Context) {
	start := time.Now()

	if err := c.Request.ParseForm(); err != nil {
		errors.BadRequest(c, "Malformed form body")
		return
	}
	if err := webhook.VerifySignature(
		h.cfg.VoiceWebhookSecret,
		fullRequestURL(c),
		c.Request.PostForm,
		c.GetHeader("X-Twilio-Signature"),
	); err != nil {
		h.logger.Warn("Voice webhook signature rejected",
			zap.String("remote_addr", c.ClientIP()),
			zap.Error(err))
		errors.Forbidden(c, "Invalid webhook signature")
		return
	}

	callID := c.PostForm("CallSid")
	if callID == "" {
		errors.BadRequest(c, "CallSid is required")
		return
	}

	in := dialog.Input{
		Speech: c.PostForm("SpeechResult"),
		Digits: c.PostForm("Digits"),
	}
	if raw := c.PostForm("Confidence"); raw != "" {
		if conf, err := strconv.ParseFloat(raw, 64); err == nil {
			in.Confidence = conf
		}
	}

	unlock := h.locks.Lock(callID)
	defer unlock()

	session, created := h.loadOrCreate(c.Request.Context(), callID)
	if session.From == "" {
		session.From = c.PostForm("From")
		session.To = c.PostForm("To")
	}
	if created {
		h.logger.Info("Call session started",
			zap.String("call_id", callID),
			logger.MaskPhoneIfPresent("from", session.From),
			logger.MaskPhoneIfPresent("to", session.To))
	}

	var out dialog.Outcome
	switch {
	case created && in.Empty():
		// Call just connected; open with the greeting instead of a reprompt.
		out = dialog.Outcome{Reply: dialog.Greeting}
	case h.llmPlanner != nil:
		out = h.llmPlanner.Advance(c.Request.Context(), session, in, h.history(c.Request.Context(), callID))
	default:
		out = h.planner.Advance(session, in)
	}

	h.recordTurns(c.Request.Context(), callID, in, out)
	h.maybeDispatchMaterials(session)

	if err := h.store.Put(c.Request.Context(), session); err != nil {
		// The reply still goes out; the next webhook starts a fresh session.
		h.logger.Error("Session write failed",
			zap.String("call_id", callID),
			zap.Error(err))
	}

	action := actionListen
	if out.EndCall {
		action = actionHangup
	}

	metrics.RecordTurn()
	metrics.RecordRequest("/voice/turn", true, time.Since(start))
	h.logger.Info("Turn processed",
		zap.String("call_id", callID),
		zap.String("stage", string(session.Stage)),
		zap.String("action", action),
		zap.Float64("confidence", in.Confidence),
		zap.Duration("latency", time.Since(start)))

	c.JSON(http.StatusOK, turnResponse{Say: out.Reply, Action: action})
}

// loadOrCreate fetches the session or starts a new one. A store failure is
// treated like a missing session so the call keeps moving.
func (h *Handler) loadOrCreate(ctx context.Context, callID string) (*dialog.CallSession, bool) {
	session, err := h.store.Get(ctx, callID)
	if err == nil {
		return session, false
	}
	if err != store.ErrNotFound {
		h.logger.Error("Session read failed, starting fresh",
			zap.String("call_id", callID),
			zap.Error(err))
	}
	return dialog.NewCallSession(callID), true
}

// history loads the transcript as generator messages. Best effort; the
// planner works without it.
func (h *Handler) history(ctx context.Context, callID string) []ai.Message {
	turns, err := h.store.Turns(ctx, callID)
	if err != nil {
		h.logger.Warn("Transcript read failed",
			zap.String("call_id", callID),
			zap.Error(err))
		return nil
	}
	messages := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, ai.Message{Role: t.Role, Content: t.Content})
	}
	return messages
}

func (h *Handler) recordTurns(ctx context.Context, callID string, in dialog.Input, out dialog.Outcome) {
	now := time.Now().UTC()
	if !in.Empty() {
		userTurn := dialog.Turn{Role: dialog.RoleUser, Content: in.Text(), At: now}
		if err := h.store.AppendTurn(ctx, callID, userTurn); err != nil {
			h.logger.Warn("Transcript append failed",
				zap.String("call_id", callID),
				zap.Error(err))
		}
		h.hub.Publish(TurnEvent{CallID: callID, Role: userTurn.Role, Content: userTurn.Content, At: now})
	}
	if out.Reply != "" {
		agentTurn := dialog.Turn{Role: dialog.RoleAssistant, Content: out.Reply, At: now}
		if err := h.store.AppendTurn(ctx, callID, agentTurn); err != nil {
			h.logger.Warn("Transcript append failed",
				zap.String("call_id", callID),
				zap.Error(err))
		}
		h.hub.Publish(TurnEvent{CallID: callID, Role: agentTurn.Role, Content: agentTurn.Content, At: now})
	}
}

// maybeDispatchMaterials sends the follow-up WhatsApp message right after
// consent lands. The Dispatched flag keeps retried webhooks from sending it
// twice.
func (h *Handler) maybeDispatchMaterials(session *dialog.CallSession) {
	if h.dispatcher == nil || session.Dispatched || session.Slots.Consent != dialog.ConsentYes {
		return
	}
	session.Dispatched = true

	destination := session.To
	if destination == "" {
		destination = h.cfg.WhatsAppDestination
	}
	if destination == "" {
		h.logger.Warn("Consent given but no delivery destination",
			zap.String("call_id", session.ID))
		return
	}

	go func(callID string) {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.DeliveryTimeout())
		defer cancel()
		err := h.dispatcher.Send(ctx, destination, dialog.MaterialsMessage)
		metrics.RecordDispatch(err == nil)
		if err != nil {
			h.logger.Error("Materials dispatch failed",
				zap.String("call_id", callID),
				zap.String("dispatcher", h.dispatcher.Name()),
				zap.Error(err))
			return
		}
		h.logger.Info("Materials dispatched",
			zap.String("call_id", callID),
			zap.String("dispatcher", h.dispatcher.Name()))
	}(session.ID)
}
