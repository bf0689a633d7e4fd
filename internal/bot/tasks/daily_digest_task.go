package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/prompt"
)

// newDailyDigestTask creates the task that posts a summary of the last
// digest window to every group and then expires old history.
func newDailyDigestTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_digest")

	return func(ctx context.Context) error {
		start := deps.Now()
		groups, err := deps.Store.ListGroupIDs(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Failed to list groups", "error", err)
			return fmt.Errorf("list groups: %w", err)
		}
		log.InfoContext(ctx, "Starting daily digest", "group_count", len(groups))

		skip := deps.Config.Digest.SkipSet()
		var failures []error
		var sent int
		pause := false
		for _, groupID := range groups {
			// Space out backend calls after each sent digest.
			if pause {
				if err := deps.Sleep(ctx, deps.Config.Digest.Pause); err != nil {
					failures = append(failures, err)
					break
				}
				pause = false
			}

			_, skipped := skip[groupID]
			posted, err := digestGroup(ctx, deps, groupID, skipped)
			if err != nil {
				log.ErrorContext(ctx, "Digest failed for group", "chat_id", groupID, "error", err)
				failures = append(failures, fmt.Errorf("group %s: %w", groupID, err))
			}
			if posted {
				sent++
				pause = true
			}
		}

		log.InfoContext(ctx, "Daily digest finished",
			"groups_sent", sent,
			"groups_failed", len(failures),
			"duration", deps.Now().Sub(start))
		return errors.Join(failures...)
	}
}

// digestGroup summarizes one group and reports whether a digest was sent.
// The window is always fetched; nothing is sent or deleted when it is empty
// or the group is skip-listed.
func digestGroup(ctx context.Context, deps TaskDeps, groupID string, skipped bool) (bool, error) {
	log := deps.Logger.With("task", "daily_digest", "chat_id", groupID)
	digest := deps.Config.Digest

	msgs, err := deps.History.Since(ctx, groupID, digest.Window)
	if err != nil {
		return false, err
	}
	if len(msgs) == 0 {
		log.DebugContext(ctx, "No messages in the digest window")
		return false, nil
	}
	if skipped {
		log.InfoContext(ctx, "Group is on the skip list", "message_count", len(msgs))
		return false, nil
	}

	prompts := deps.Config.Prompts
	fragments := prompt.Assemble([]string{prompts.SummaryInstruction, prompts.DigestOpening}, msgs)
	summary, err := deps.GeminiClient.Generate(ctx, fragments)
	if err != nil {
		return false, err
	}

	if err := deps.Transport.Send(ctx, groupID, deps.Formatter.Markdown(summary), chat.SendOptions{Markdown: true}); err != nil {
		return false, err
	}

	cutoff := deps.Now().Add(-digest.Retention).UnixMilli()
	deleted, err := deps.Store.DeleteMessagesOlderThan(ctx, groupID, cutoff)
	if err != nil {
		return true, err
	}
	log.InfoContext(ctx, "Digest posted", "message_count", len(msgs), "expired_rows", deleted)
	return true, nil
}
