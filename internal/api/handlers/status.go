package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glamhair/patglam-agent/internal/archive"
	"github.com/glamhair/patglam-agent/internal/dialog"
	"github.com/glamhair/patglam-agent/internal/store"
	"github.com/glamhair/patglam-agent/pkg/errors"
	"github.com/glamhair/patglam-agent/pkg/metrics"
	"github.com/glamhair/patglam-agent/pkg/webhook"
)

// HandleStatus finalizes a call once the provider reports it completed:
// summarize the transcript, deliver the lead brief, archive, clean up.
// POST /voice/status (form-encoded, signed by the telephony provider).
func (h *Handler) HandleStatus(c *gin.Context) {
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
		h.logger.Warn("Status webhook signature rejected",
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

	status := c.PostForm("CallStatus")
	if !isTerminalStatus(status) {
		h.logger.Info("Non-terminal call status",
			zap.String("call_id", callID),
			zap.String("status", status))
		c.JSON(http.StatusOK, gin.H{"message": "ignored"})
		return
	}

	unlock := h.locks.Lock(callID)
	defer unlock()

	first, err := h.store.Consume(c.Request.Context(), callID)
	if err != nil {
		// Leave the marker unset so the provider's retry can finish the job.
		h.logger.Error("Completion marker failed",
			zap.String("call_id", callID),
			zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}
	if !first {
		h.logger.Info("Duplicate completion event",
			zap.String("call_id", callID))
		c.JSON(http.StatusOK, gin.H{"message": "already processed"})
		return
	}

	h.finalizeCall(c.Request.Context(), callID, dialog.CallMeta{
		CallID:   callID,
		Duration: c.PostForm("CallDuration"),
		From:     c.PostForm("From"),
		To:       c.PostForm("To"),
	})

	c.JSON(http.StatusOK, gin.H{"message": "processed"})
}

func isTerminalStatus(status string) bool {
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	}
	return false
}

// finalizeCall runs the post-call pipeline. Every step past the completion
// marker is best effort: a delivery or archive failure is logged, never
// retried through the webhook.
func (h *Handler) finalizeCall(ctx context.Context, callID string, meta dialog.CallMeta) {
	turns, err := h.store.Turns(ctx, callID)
	if err != nil {
		h.logger.Error("Transcript read failed during finalize",
			zap.String("call_id", callID),
			zap.Error(err))
	}
	session, err := h.store.Get(ctx, callID)
	if err != nil && err != store.ErrNotFound {
		h.logger.Error("Session read failed during finalize",
			zap.String("call_id", callID),
			zap.Error(err))
	}

	brief := h.summarizer.Summarize(ctx, meta, turns)

	dispatched := h.deliverBrief(ctx, callID, brief.Text)
	h.archiveCall(ctx, meta, session, turns, brief, dispatched)

	if err := h.store.Delete(ctx, callID); err != nil {
		h.logger.Warn("Session cleanup failed",
			zap.String("call_id", callID),
			zap.Error(err))
	}

	h.logger.Info("Call finalized",
		zap.String("call_id", callID),
		zap.Int("turns", len(turns)),
		zap.Bool("degraded_brief", brief.Degraded),
		zap.Bool("dispatched", dispatched))
}

func (h *Handler) deliverBrief(ctx context.Context, callID, text string) bool {
	if h.dispatcher == nil || h.cfg.WhatsAppDestination == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, h.cfg.DeliveryTimeout())
	defer cancel()

	err := h.dispatcher.Send(ctx, h.cfg.WhatsAppDestination, text)
	metrics.RecordDispatch(err == nil)
	if err != nil {
		h.logger.Error("Brief delivery failed",
			zap.String("call_id", callID),
			zap.String("dispatcher", h.dispatcher.Name()),
			zap.Error(err))
		return false
	}
	return true
}

func (h *Handler) archiveCall(
	ctx context.Context,
	meta dialog.CallMeta,
	session *dialog.CallSession,
	turns []dialog.Turn,
	brief *dialog.Brief,
	dispatched bool,
) {
	if h.archive == nil {
		return
	}
	now := time.Now().UTC()

	rec := &archive.BriefRecord{
		BriefID:    uuid.New().String(),
		CallID:     meta.CallID,
		From:       meta.From,
		To:         meta.To,
		Duration:   meta.Duration,
		Text:       brief.Text,
		Degraded:   brief.Degraded,
		Dispatched: dispatched,
		CreatedAt:  now,
	}
	if err := h.archive.SaveBrief(ctx, rec); err != nil {
		h.logger.Error("Brief archive failed",
			zap.String("call_id", meta.CallID),
			zap.Error(err))
	}

	callRec := &archive.CallRecord{
		CallID:    meta.CallID,
		From:      meta.From,
		To:        meta.To,
		Duration:  meta.Duration,
		Turns:     turns,
		CreatedAt: now,
	}
	if session != nil {
		callRec.Profile = session.Slots.Profile
	}
	if err := h.archive.SaveCall(ctx, callRec); err != nil {
		h.logger.Error("Call archive failed",
			zap.String("call_id", meta.CallID),
			zap.Error(err))
	}
}
