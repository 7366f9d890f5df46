package party

import (
	"context"
	"log/slog"
	"time"

	"github.com/programmingdumpster/partybot/internal/events"
	"github.com/programmingdumpster/partybot/internal/metrics"
	"github.com/programmingdumpster/partybot/internal/repository"
)

type ReplyResult struct {
	Kind  ReplyKind
	Party repository.Party
}

// RecordReply handles a direct message from a leader that may answer an open
// extension prompt. Only the leader, in the prompt channel, strictly before
// the deadline can answer.
func (s *Service) RecordReply(ctx context.Context, userID, channelID, content string) (ReplyResult, error) {
	led, ok := s.registry.FindByLeader(userID)
	if !ok {
		return ReplyResult{Kind: ReplyNotAwaiting}, nil
	}

	unlock := s.locks.Lock(led.PartyID)
	defer unlock()

	p, ok := s.registry.Get(led.PartyID)
	if !ok || p.LeaderID != userID {
		return ReplyResult{Kind: ReplyNotAwaiting}, nil
	}

	now := s.now()
	kind := s.tracker.Classify(p.PartyID, channelID, content, now)
	res := ReplyResult{Kind: kind, Party: p}
	switch kind {
	case ReplyNotAwaiting, ReplyWrongChannel:
		return res, nil
	}
	metrics.ExtensionReplies.WithLabelValues(kind.String()).Inc()

	n, _ := s.tracker.Get(p.PartyID)
	switch kind {
	case ReplyLate:
		s.tracker.Close(p.PartyID)
		s.deleteMessage(ctx, n.Prompt, "extension_prompt", p.PartyID)
		p.ExtensionReminderMessageID = ""
		s.registry.Upsert(p)
		s.persist(ctx)
		slog.Info("late extension reply ignored", "party_id", p.PartyID, "reply_due_at", n.ReplyDueAt)
		s.notify(ctx, p.LeaderID, Notice{Kind: NoticeExtensionReplyTooLate, Party: p, UserID: p.LeaderID})

	case ReplyExtended:
		s.tracker.Close(p.PartyID)
		s.deleteMessage(ctx, n.Prompt, "extension_prompt", p.PartyID)
		s.applyExtension(&p)
		s.registry.Upsert(p)
		s.persist(ctx)
		slog.Info("party extended", "party_id", p.PartyID, "expires_at", p.ExpiresAt, "next_reminder_at", p.NextReminderAt)
		s.refreshAndStore(ctx, &p, panelSettings|panelLeader)
		s.notify(ctx, p.LeaderID, Notice{Kind: NoticeExtended, Party: p, UserID: p.LeaderID})
		s.publish(ctx, events.PartyExtended, p, p.LeaderID, "")

	case ReplyDeclined:
		s.tracker.Close(p.PartyID)
		s.deleteMessage(ctx, n.Prompt, "extension_prompt", p.PartyID)
		p.ExtensionReminderMessageID = ""
		s.registry.Upsert(p)
		s.persist(ctx)
		slog.Info("party extension declined", "party_id", p.PartyID, "expires_at", p.ExpiresAt)
		s.notify(ctx, p.LeaderID, Notice{Kind: NoticeExtensionDeclined, Party: p, UserID: p.LeaderID})

	case ReplyInvalid:
		ref, err := s.prompter.SendExtensionPrompt(ctx, p, n.ReplyDueAt)
		if err != nil {
			slog.Warn("failed to re-issue extension prompt", "error", err, "party_id", p.PartyID)
			break
		}
		s.deleteMessage(ctx, n.Prompt, "extension_prompt", p.PartyID)
		s.tracker.Reprompt(p.PartyID, ref)
		p.ExtensionReminderMessageID = ref.MessageID
		s.registry.Upsert(p)
		s.persist(ctx)
	}
	res.Party = p
	return res, nil
}

// applyExtension moves expiry forward and starts a new reminder cycle.
func (s *Service) applyExtension(p *repository.Party) {
	p.ExpiresAt = p.ExpiresAt.Add(s.settings.ExtendBy)
	p.NextReminderAt = reminderAt(p.ExpiresAt, s.settings.ExtendBy, s.settings.ReminderLead)
	p.ReminderSentForCurrentCycle = false
	p.ExtensionReminderMessageID = ""
}

// reminderDue reports whether the party should get an extension prompt now.
func (s *Service) reminderDue(p repository.Party, now time.Time) bool {
	return !p.ReminderSentForCurrentCycle &&
		!s.tracker.Has(p.PartyID) &&
		!now.Before(p.NextReminderAt) &&
		now.Before(p.ExpiresAt)
}

// sendReminder opens a negotiation. The caller holds the party lock.
func (s *Service) sendReminder(ctx context.Context, p repository.Party, now time.Time) {
	s.removeStalePrompt(ctx, &p)
	due := now.Add(s.settings.ExtensionWindow)
	ref, err := s.prompter.SendExtensionPrompt(ctx, p, due)
	if err != nil {
		slog.Warn("extension reminder not delivered; retrying next sweep", "error", err, "party_id", p.PartyID, "leader_id", p.LeaderID)
		return
	}
	s.tracker.Open(p.PartyID, due, ref)
	p.ReminderSentForCurrentCycle = true
	p.ExtensionReminderMessageID = ref.MessageID
	s.registry.Upsert(p)
	s.persist(ctx)
	metrics.RemindersSent.Inc()
	slog.Info("extension reminder sent", "party_id", p.PartyID, "reply_due_at", due, "expires_at", p.ExpiresAt)
}

// removeStalePrompt deletes a prompt left over from a negotiation that is no
// longer tracked, such as one interrupted by a restart.
func (s *Service) removeStalePrompt(ctx context.Context, p *repository.Party) {
	if s.prompter == nil || p.ExtensionReminderMessageID == "" || s.tracker.Has(p.PartyID) {
		return
	}
	if err := s.prompter.RemoveExtensionPrompt(ctx, *p); err != nil {
		slog.Warn("failed to remove stale extension prompt", "error", err, "party_id", p.PartyID, "message_id", p.ExtensionReminderMessageID)
	}
	p.ExtensionReminderMessageID = ""
}

// expireNegotiation treats a missed deadline as a decline. The caller holds
// the party lock.
func (s *Service) expireNegotiation(ctx context.Context, p repository.Party, now time.Time) bool {
	n, ok := s.tracker.Get(p.PartyID)
	if !ok || now.Before(n.ReplyDueAt) {
		return false
	}
	s.tracker.Close(p.PartyID)
	s.deleteMessage(ctx, n.Prompt, "extension_prompt", p.PartyID)
	p.ExtensionReminderMessageID = ""
	s.registry.Upsert(p)
	s.persist(ctx)
	metrics.ExtensionReplies.WithLabelValues("timed_out").Inc()
	slog.Info("extension reply window elapsed", "party_id", p.PartyID, "expires_at", p.ExpiresAt)
	s.notify(ctx, p.LeaderID, Notice{Kind: NoticeExtensionTimedOut, Party: p, UserID: p.LeaderID})
	return true
}
