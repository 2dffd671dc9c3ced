package session

import (
	"context"

	"github.com/vovakirdan/chatpad-sync/internal/composer"
	"github.com/vovakirdan/chatpad-sync/internal/core"
	"github.com/vovakirdan/chatpad-sync/internal/metrics"
	"github.com/vovakirdan/chatpad-sync/internal/timeline"
)

func (c *Coordinator) handleCommand(cmd *command) {
	switch cmd.kind {
	case cmdSelectGroup:
		cmd.reply <- reply{err: c.selectGroup(cmd.groupID)}
	case cmdActiveGroup:
		if c.active == nil {
			cmd.reply <- reply{}
			return
		}
		cmd.reply <- reply{group: c.active.group, found: true}
	case cmdTimeline:
		groupID := cmd.groupID
		if groupID == "" {
			if c.active == nil {
				cmd.reply <- reply{err: core.ErrNoActiveGroup}
				return
			}
			groupID = c.active.id
		}
		cmd.reply <- reply{messages: c.store.Current(groupID)}
	case cmdPresence:
		rec, ok := c.presence.Get(cmd.userID)
		cmd.reply <- reply{presence: rec, found: ok}
	case cmdSend:
		c.handleSend(cmd)
	case cmdRetry:
		c.handleRetry(cmd)
	}
}

func (c *Coordinator) handleInput(in input) {
	if in.kind == inDispatched {
		c.handleDispatched(in)
		return
	}
	if c.active == nil || in.gen != c.active.gen {
		c.log.Debug().Uint64("gen", in.gen).Int("kind", int(in.kind)).Msg("stale result discarded")
		return
	}
	switch in.kind {
	case inGroupLoaded:
		c.handleGroupLoaded(in)
	case inSnapshot:
		c.handleSnapshot(in)
	case inLiveUpdate:
		c.handleLiveUpdate(in)
	case inPresence:
		c.handlePresence(in)
	case inFeedClosed:
		c.handleFeedClosed(in)
	case inReconnect:
		c.handleReconnect(in)
	}
}

func (c *Coordinator) selectGroup(groupID string) error {
	if groupID == "" {
		return core.Wrap(core.ErrCodeBadRequest, "group id is required", nil)
	}
	c.closeActive()
	c.presence.Reset()
	if c.opts.Self.ID != "" {
		c.presence.SetOnline(c.opts.Self.ID, true, c.clock.Now())
	}

	c.gen++
	ctx, cancel := context.WithCancel(c.runCtx)
	a := &activeGroup{
		id:     groupID,
		gen:    c.gen,
		group:  core.Group{ID: groupID},
		ctx:    ctx,
		cancel: cancel,
	}
	c.active = a
	c.log.Info().Str("group_id", groupID).Uint64("gen", a.gen).Msg("group selected")

	c.fetchGroup(a)
	c.fetchHistory(a)
	c.openLive(a)
	c.openPresence(a)
	return nil
}

// closeActive cancels everything started for the current selection and
// forgets its timeline.
func (c *Coordinator) closeActive() {
	if c.active == nil {
		return
	}
	c.active.cancel()
	for _, t := range c.active.timers {
		t.Stop()
	}
	c.store.Drop(c.active.id)
	c.active = nil
}

func (c *Coordinator) handleGroupLoaded(in input) {
	if in.err != nil {
		c.log.Warn().Err(in.err).Str("group_id", c.active.id).Msg("fetch group failed")
		c.notice(core.NoticeFrom(in.err, ""))
		return
	}
	if err := in.group.Validate(); err != nil {
		c.log.Warn().Err(err).Str("group_id", in.group.ID).Msg("group rejected")
		c.notice(core.NoticeFrom(err, ""))
		return
	}
	if c.opts.Self.ID != "" && !in.group.HasMember(c.opts.Self.ID) {
		err := core.Wrap(core.ErrCodeBadRequest, "not a member of group "+in.group.ID, nil)
		c.log.Warn().Str("group_id", in.group.ID).Msg("self is not a group member")
		c.notice(core.NoticeFrom(err, ""))
		return
	}
	c.active.group = in.group
	if c.opts.FilterPresenceByGroup {
		c.presence.Scope(in.group.MemberIDs())
	}
	g := in.group
	c.emit(&core.Event{Kind: core.EventGroupSelected, GroupID: g.ID, Group: &g})
}

func (c *Coordinator) handleSnapshot(in input) {
	if in.err != nil {
		// The live feed still fills the timeline.
		c.log.Warn().Err(in.err).Str("group_id", c.active.id).Msg("fetch history failed")
		return
	}
	c.store.LoadSnapshot(c.active.id, timeline.ForGroup(c.active.id, in.messages))
	c.emitTimeline(false)
}

func (c *Coordinator) handleLiveUpdate(in input) {
	c.store.ApplyLiveUpdate(c.active.id, timeline.ForGroup(c.active.id, in.messages))
	metrics.IncLiveUpdate()
	c.emitTimeline(true)
}

func (c *Coordinator) handlePresence(in input) {
	now := c.clock.Now()
	for _, ev := range in.presence {
		rec, changed := c.presence.Apply(ev, now)
		if !changed {
			continue
		}
		c.emit(&core.Event{Kind: core.EventPresence, GroupID: c.active.id, Presence: &rec})
	}
}

func (c *Coordinator) handleFeedClosed(in input) {
	a := c.active
	if a.ctx.Err() != nil {
		return
	}
	c.log.Warn().Err(in.err).Str("feed", in.feed).Dur("retry_in", c.opts.ReconnectDelay).Msg("feed interrupted")
	err := in.err
	if core.CodeOf(err) != core.ErrCodeChannelInterrupted {
		err = core.Wrap(core.ErrCodeChannelInterrupted, in.feed+" feed interrupted", in.err)
	}
	feed, gen := in.feed, a.gen
	t := c.clock.AfterFunc(c.opts.ReconnectDelay, func() {
		c.post(a.ctx, input{kind: inReconnect, gen: gen, feed: feed})
	})
	a.timers = append(a.timers, t)

	metrics.IncFeedReconnect(in.feed)
	c.notice(core.NoticeFrom(err, ""))
}

func (c *Coordinator) handleReconnect(in input) {
	a := c.active
	c.log.Info().Str("feed", in.feed).Str("group_id", a.id).Msg("reopening feed")
	switch in.feed {
	case feedLive:
		// The last live list stays authoritative until the new subscription
		// delivers. Before the cutover the snapshot may have failed, so it
		// is fetched again.
		if !c.store.HasLive(a.id) {
			c.fetchHistory(a)
		}
		c.openLive(a)
	case feedPresence:
		c.openPresence(a)
	}
}

func (c *Coordinator) handleSend(cmd *command) {
	if c.active == nil {
		cmd.reply <- reply{err: core.ErrNoActiveGroup}
		return
	}
	out, err := c.composer.Prepare(composer.Draft{
		GroupID: c.active.id,
		Author:  core.SnapshotOf(c.opts.Self),
		Body:    cmd.body,
		IsImage: cmd.isImage,
	})
	if err != nil {
		cmd.reply <- reply{err: err}
		return
	}
	c.dispatch(out, cmd.reply)
}

func (c *Coordinator) handleRetry(cmd *command) {
	if c.active == nil {
		cmd.reply <- reply{err: core.ErrNoActiveGroup}
		return
	}
	out, err := c.composer.PrepareRetry(c.active.id, cmd.messageID)
	if err != nil {
		cmd.reply <- reply{err: err}
		return
	}
	c.dispatch(out, cmd.reply)
}

// dispatch shows the optimistic entry and sends it off-loop. The send is
// bound to the run context so switching groups does not abort it.
func (c *Coordinator) dispatch(out core.OutboundMessage, replyTo chan reply) {
	c.emitTimeline(false)
	ctx, gen := c.runCtx, c.active.gen
	go func() {
		err := c.composer.Dispatch(ctx, out)
		c.post(ctx, input{kind: inDispatched, gen: gen, out: out, err: err, reply: replyTo})
	}()
}

func (c *Coordinator) handleDispatched(in input) {
	if c.active == nil || in.gen != c.active.gen {
		// The timeline this entry lived in is gone.
		in.reply <- reply{message: in.out.Message(), err: in.err}
		return
	}
	notice := c.composer.Complete(in.out, in.err)
	msg, ok := c.store.Local(in.out.GroupID, in.out.ID)
	if !ok {
		msg = in.out.Message()
		if in.err == nil {
			msg.Status = core.StatusAcked
		}
	}
	if notice != nil {
		c.emit(&core.Event{Kind: core.EventNotice, GroupID: c.active.id, Notice: notice})
	}
	c.emitTimeline(false)
	in.reply <- reply{message: msg, notice: notice, err: in.err}
}

func (c *Coordinator) heartbeat(ctx context.Context) {
	now := c.clock.Now()
	if c.opts.Self.ID != "" {
		c.presence.SetOnline(c.opts.Self.ID, true, now)
	}
	if c.opts.PresenceExpiry > 0 && c.active != nil {
		for _, id := range c.presence.Expire(now, c.opts.PresenceExpiry) {
			rec, _ := c.presence.Get(id)
			c.emit(&core.Event{Kind: core.EventPresence, GroupID: c.active.id, Presence: &rec})
		}
	}
	hctx, cancel := context.WithTimeout(ctx, c.opts.HeartbeatInterval)
	go func() {
		defer cancel()
		if err := c.backend.RefreshActivity(hctx); err != nil {
			metrics.IncHeartbeat("error")
			c.log.Debug().Err(err).Msg("heartbeat failed")
			return
		}
		metrics.IncHeartbeat("ok")
	}()
}

func (c *Coordinator) notice(n *core.Notice) {
	metrics.IncNotice(n.Code)
	groupID := ""
	if c.active != nil {
		groupID = c.active.id
	}
	c.emit(&core.Event{Kind: core.EventNotice, GroupID: groupID, Notice: n})
}

// emitTimeline publishes the active timeline. After a live update, foreign
// messages posted just now that were not rendered before are also announced.
func (c *Coordinator) emitTimeline(live bool) {
	a := c.active
	msgs := c.store.Current(a.id)
	metrics.SetTimelineEntries(len(msgs))

	if live && a.rendered != nil {
		for i := range msgs {
			m := msgs[i]
			if _, seen := a.rendered[m.ID]; seen {
				continue
			}
			if m.Author.ID == c.opts.Self.ID || m.ElapsedMinutes != 0 || m.Status != core.StatusConfirmed {
				continue
			}
			c.emit(&core.Event{Kind: core.EventFreshMessage, GroupID: a.id, Message: &m})
		}
	}
	a.rendered = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		a.rendered[m.ID] = struct{}{}
	}

	c.emit(&core.Event{Kind: core.EventTimeline, GroupID: a.id, Messages: msgs})
}
