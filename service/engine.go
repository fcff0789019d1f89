package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JuanCrzp/ClientCare/model"
	"github.com/JuanCrzp/ClientCare/nlu"
	"github.com/JuanCrzp/ClientCare/rules"
	"github.com/JuanCrzp/ClientCare/utils"
)

const (
	defaultReminderMessage = "¿Sigues ahí? Si necesitas más ayuda, escríbeme."
	defaultCloseMessage    = "He cerrado la conversación por inactividad. Escríbeme cuando quieras retomarla."
	defaultResumeOffer     = "Veo que tenemos pendiente el tema '{topic}'. ¿Quieres retomarlo?"
	defaultTicketOpened    = "He creado tu ticket #{ticket_id}."
	defaultTopicTTLDays    = 14

	pendingTicketTopic = "ticket_pendiente"
	historyCommandSize = 10
)

// Engine is the message-dispatch decision engine: given an inbound envelope
// it consults the rule set, the persisted conversation state and the
// matchers, performs one state transition and returns the reply. It never
// returns an error; the worst case is the configured fallback text.
type Engine struct {
	rules   *rules.Provider
	states  StateStore
	convs   ConversationStore
	tickets TicketStore
	bayes   *nlu.BayesNLU
	limiter *utils.RateLimiter
	log     *zap.SugaredLogger

	now  func() time.Time
	keys keyMutex

	stages []stage
}

// stage is one named step of the dispatch pipeline. A nil reply means
// "not my turn, try the next stage". The ordering of the slice is the
// engine's priority policy.
type stage struct {
	name string
	run  func(*turn) *model.Reply
}

// turn is the per-message working set shared by the stages.
type turn struct {
	ctx  context.Context
	in   model.Inbound
	user string
	chat string

	raw   string // trimmed original text
	lower string // lowercased
	norm  string // normalized (accents stripped)

	r         *rules.ChatRules
	stateName string
	stateData map[string]any
	prevHist  []model.HistoryEvent
	now       time.Time

	// bookkeeping across stages
	faqChecked   bool
	faqAnswer    string
	nearMiss     float64
	skipBotEcho  bool
}

func NewEngine(provider *rules.Provider, states StateStore, convs ConversationStore, tickets TicketStore, bayes *nlu.BayesNLU, log *zap.SugaredLogger) *Engine {
	e := &Engine{
		rules:   provider,
		states:  states,
		convs:   convs,
		tickets: tickets,
		bayes:   bayes,
		limiter: utils.NewRateLimiter(),
		log:     log,
		now:     time.Now,
	}
	e.stages = []stage{
		{"inactivity", e.stageInactivity},
		{"resume_topic", e.stageResumeTopic},
		{"faq_precheck", e.stageFaq},
		{"ticket_detail", e.stageTicketDetail},
		{"intent_precheck", e.stageIntentPrecheck},
		{"greeting", e.stageGreeting},
		{"menu_request", e.stageMenuRequest},
		{"menu_dynamic", e.stageDynamicMenu},
		{"faq_submenu", e.stageFaqSubmenu},
		{"menu_static", e.stageStaticMenu},
		{"catalog_precheck", e.stageCatalogPrecheck},
		{"faq_probe", e.stageFaq},
		{"shortcuts", e.stageShortcuts},
		{"fallback", e.stageFallback},
	}
	return e
}

// StageNames exposes the pipeline order; the priority policy is data, not
// an accident of code layout.
func (e *Engine) StageNames() []string {
	names := make([]string, len(e.stages))
	for i, s := range e.stages {
		names[i] = s.name
	}
	return names
}

// ProcessMessage runs the pipeline for one inbound message. Safe for
// concurrent use; messages for the same (chat, user) key are serialized.
func (e *Engine) ProcessMessage(ctx context.Context, in model.Inbound) model.Reply {
	user := in.PlatformUserID
	chat := in.GroupID
	unlock := e.keys.lock(chat + "|" + user)
	defer unlock()

	r := e.rules.RulesFor(chat)
	raw := strings.TrimSpace(in.Text)
	lower := strings.ToLower(raw)

	if n := r.RateLimit.PerUserPerMinute; n > 0 && !e.limiter.Allow(user, n) {
		msg := r.RateLimit.Message
		if msg == "" {
			msg = "Demasiados mensajes, intenta en un minuto."
		}
		return model.TextReply(msg)
	}

	t := &turn{
		ctx:   ctx,
		in:    in,
		user:  user,
		chat:  chat,
		raw:   raw,
		lower: lower,
		norm:  utils.NormalizeText(raw),
		r:     r,
		now:   e.now(),
	}

	// Slash commands bypass everything, including the history append.
	if lower == "/historial" {
		return e.renderHistory(t)
	}
	if strings.HasPrefix(lower, "/ticket ") {
		if id := strings.TrimSpace(raw[len("/ticket "):]); id != "" {
			return e.renderTicket(t, id)
		}
	}

	st, err := e.states.Get(ctx, user, chat)
	if err != nil {
		e.log.Warnw("state read failed", "user", user, "chat", chat, "err", err)
	}
	t.stateName = knownState(st.Name)
	t.stateData = st.Data

	t.prevHist, err = e.convs.History(ctx, user, chat, 0)
	if err != nil {
		e.log.Warnw("history read failed", "user", user, "chat", chat, "err", err)
		t.prevHist = nil
	}

	e.appendEvent(t, model.RoleUser, raw, nil)

	for _, s := range e.stages {
		if rep := s.run(t); rep != nil {
			e.log.Debugw("dispatch decided", "stage", s.name, "user", user, "chat", chat, "state", t.stateName)
			if !t.skipBotEcho {
				e.appendEvent(t, model.RoleBot, rep.Text, nil)
			}
			return *rep
		}
	}
	// The fallback stage always returns; this is unreachable.
	return model.TextReply(t.r.Fallback())
}

// knownState collapses unknown state tags to "no active flow".
func knownState(name string) string {
	switch name {
	case model.StateMenuDynamic, model.StateMenuMain, model.StateMenuFaq, model.StateTicketDetail:
		return name
	default:
		return model.StateNone
	}
}

func (e *Engine) appendEvent(t *turn, role, text string, meta map[string]any) {
	ev := model.HistoryEvent{Ts: t.now.Unix(), Role: role, Text: text, Meta: meta}
	if err := e.convs.AppendEvent(t.ctx, t.user, t.chat, ev, t.r.HistoryMax()); err != nil {
		e.log.Warnw("history append failed", "user", t.user, "chat", t.chat, "err", err)
	}
}

func (e *Engine) setState(t *turn, name string, data map[string]any) {
	if err := e.states.Set(t.ctx, t.user, t.chat, name, data); err != nil {
		e.log.Warnw("state write failed", "user", t.user, "chat", t.chat, "err", err)
	}
	t.stateName = name
	t.stateData = data
}

func (e *Engine) clearState(t *turn) {
	if err := e.states.Clear(t.ctx, t.user, t.chat); err != nil {
		e.log.Warnw("state clear failed", "user", t.user, "chat", t.chat, "err", err)
	}
	t.stateName = model.StateNone
	t.stateData = nil
}

// renderHistory handles /historial: the last few events as "[role] text"
// lines.
func (e *Engine) renderHistory(t *turn) model.Reply {
	hist, err := e.convs.History(t.ctx, t.user, t.chat, historyCommandSize)
	if err != nil {
		e.log.Warnw("history read failed", "user", t.user, "chat", t.chat, "err", err)
	}
	if len(hist) == 0 {
		return model.TextReply("Sin historial todavía.")
	}
	lines := make([]string, 0, len(hist))
	for _, ev := range hist {
		lines = append(lines, fmt.Sprintf("[%s] %s", ev.Role, truncate(ev.Text, 64)))
	}
	return model.TextReply(strings.Join(lines, "\n"))
}

// renderTicket handles /ticket <id>: the stored ticket's text and status.
func (e *Engine) renderTicket(t *turn, id string) model.Reply {
	ticket, err := e.tickets.Get(t.ctx, id)
	if err != nil {
		return model.TextReply("No encuentro ese ticket.")
	}
	return model.TextReply(fmt.Sprintf("Ticket %s: %s (estado: %s)", ticket.ID, truncate(ticket.Text, 80), ticket.Status))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// lastUserEvent finds the most recent prior user event.
func lastUserEvent(hist []model.HistoryEvent) *model.HistoryEvent {
	for i := len(hist) - 1; i >= 0; i-- {
		if hist[i].Role == model.RoleUser {
			return &hist[i]
		}
	}
	return nil
}

// stageInactivity closes or nudges conversations that have been idle in a
// monitored state. The close check wins over the reminder and is monotonic:
// once past close_after the state is cleared no matter what.
func (e *Engine) stageInactivity(t *turn) *model.Reply {
	cfg := t.r.Memory.Inactivity
	if !cfg.On() || !contains(cfg.WatchedStates(), t.stateName) {
		return nil
	}
	prev := lastUserEvent(t.prevHist)
	if prev == nil {
		return nil
	}
	idle := t.now.Unix() - prev.Ts

	if closeAfter := cfg.CloseAfter.Seconds("m"); closeAfter > 0 && idle >= int64(closeAfter) {
		e.clearState(t)
		if err := e.convs.ClearTopic(t.ctx, t.user, t.chat); err != nil {
			e.log.Warnw("topic clear failed", "user", t.user, "chat", t.chat, "err", err)
		}
		e.appendEvent(t, model.RoleBot, "conversación cerrada por inactividad", map[string]any{"event": "inactivity_close"})
		msg := cfg.CloseMessage
		if msg == "" {
			msg = defaultCloseMessage
		}
		t.skipBotEcho = true
		rep := model.TextReply(msg)
		return &rep
	}

	if remindAfter := cfg.ReminderAfter.Seconds("m"); remindAfter > 0 && idle >= int64(remindAfter) {
		sent, _ := t.stateData["inactivity_reminder_sent"].(bool)
		if sent && cfg.ReminderOnce() {
			return nil
		}
		if err := e.states.UpdateField(t.ctx, t.user, t.chat, "inactivity_reminder_sent", true); err != nil {
			e.log.Warnw("state update failed", "user", t.user, "chat", t.chat, "err", err)
		}
		msg := cfg.ReminderMessage
		if msg == "" {
			msg = defaultReminderMessage
		}
		rep := model.TextReply(msg)
		return &rep
	}
	return nil
}

// stageResumeTopic offers to pick up an open topic after a long gap.
func (e *Engine) stageResumeTopic(t *turn) *model.Reply {
	if len(t.prevHist) < 1 {
		return nil
	}
	topic, err := e.convs.Topic(t.ctx, t.user, t.chat)
	if err != nil {
		e.log.Warnw("topic read failed", "user", t.user, "chat", t.chat, "err", err)
		return nil
	}
	if topic == nil {
		return nil
	}
	gap := t.now.Unix() - t.prevHist[len(t.prevHist)-1].Ts
	if gap <= int64(t.r.ResumeAfterSeconds()) {
		return nil
	}
	tpl := t.r.Memory.OfferResumeMessage
	if tpl == "" {
		tpl = defaultResumeOffer
	}
	rep := model.TextReply(strings.ReplaceAll(tpl, "{topic}", topic.Name))
	return &rep
}

// stageFaq answers from the FAQ when the feature is enabled. Registered
// twice: as the early pre-check and as the late probe.
func (e *Engine) stageFaq(t *turn) *model.Reply {
	if !t.r.FeatureEnabled("faq") {
		return nil
	}
	if !t.faqChecked {
		t.faqAnswer, _ = MatchFaq(t.raw, t.r)
		t.faqChecked = true
	}
	if t.faqAnswer == "" {
		return nil
	}
	rep := model.TextReply(t.faqAnswer)
	return &rep
}

// stageTicketDetail completes the ticket flow: any non-empty text becomes
// the ticket description. Repeating a ticket trigger re-asks instead of
// opening a near-empty ticket.
func (e *Engine) stageTicketDetail(t *turn) *model.Reply {
	if t.stateName != model.StateTicketDetail {
		return nil
	}
	if t.raw == "" || e.isTicketTrigger(t) {
		rep := model.TextReply(t.r.AskDetailText())
		return &rep
	}
	if !t.r.FeatureEnabled("tickets") {
		e.clearState(t)
		rep := model.TextReply(t.r.Fallback())
		return &rep
	}

	ticket, err := e.tickets.Create(t.ctx, t.user, t.chat, t.raw)
	if err != nil {
		e.log.Errorw("ticket create failed", "user", t.user, "chat", t.chat, "err", err)
		rep := model.TextReply(t.r.Fallback())
		return &rep
	}
	e.clearState(t)
	if err := e.convs.ClearTopic(t.ctx, t.user, t.chat); err != nil {
		e.log.Warnw("topic clear failed", "user", t.user, "chat", t.chat, "err", err)
	}
	e.appendEvent(t, model.RoleBot, "ticket creado", map[string]any{"event": "ticket_created", "ticket_id": ticket.ID})

	tpl := t.r.Tickets.MessageOpened
	if tpl == "" {
		tpl = defaultTicketOpened
	}
	msg := strings.ReplaceAll(tpl, "#{ticket_id}", ticket.ID)
	rep := model.TextReply(fmt.Sprintf("%s Puedes consultar con /ticket %s", msg, ticket.ID))
	return &rep
}

func (e *Engine) isTicketTrigger(t *turn) bool {
	if t.r.MatchesSynonym("ticket", t.lower) {
		return true
	}
	for _, intent := range t.r.NLU.Intents {
		if strings.ToLower(intent.Action) != "ticket_ask_detail" {
			continue
		}
		for _, p := range intent.Patterns {
			if p != "" && strings.Contains(t.lower, strings.ToLower(p)) {
				return true
			}
		}
	}
	return false
}

// classifier picks the configured strategy for this chat's rules. An "ml"
// provider without a model stays degraded: every classification comes back
// inconclusive rather than silently switching to pattern matching.
func (e *Engine) classifier(r *rules.ChatRules) nlu.Classifier {
	if strings.EqualFold(r.NLU.Provider, "ml") {
		if e.bayes != nil {
			return e.bayes
		}
		return inconclusiveNLU{}
	}
	return nlu.NewPatternNLU(r.NLU)
}

type inconclusiveNLU struct{}

func (inconclusiveNLU) Classify(string) (*nlu.IntentMatch, float64) { return nil, 0.0 }

// stageIntentPrecheck classifies the text before the menu stages, unless
// the message is an explicit menu request. A sub-threshold near-miss is
// remembered for the final low-confidence nudge.
func (e *Engine) stageIntentPrecheck(t *turn) *model.Reply {
	if len(t.r.NLU.Intents) == 0 || e.isMenuRequest(t) {
		return nil
	}
	match, score := e.classifier(t.r).Classify(t.raw)
	if match == nil {
		return nil
	}
	threshold := t.r.NLUThreshold()
	literalReply := match.Action == "reply" && match.Intent != nil &&
		(match.Intent.ReplyText != "" || len(match.Intent.Responses) > 0)
	if score >= threshold || literalReply {
		if rep := e.dispatchIntent(t, match); rep != nil {
			return rep
		}
	}
	if score > 0 && score < threshold {
		t.nearMiss = score
	}
	return nil
}

// stageGreeting answers greetings and, when a dynamic menu is configured,
// opens it with a delayed second message.
func (e *Engine) stageGreeting(t *turn) *model.Reply {
	r := t.r
	isFirst := len(t.prevHist) == 0
	greetingShaped := isFirst && r.GreetingForceOnFirstMessage && len(strings.Fields(t.norm)) <= 2
	if !r.IsGreetingTrigger(t.norm) && t.lower != "/start" && !greetingShaped {
		return nil
	}
	greeting := BuildGreeting(t.user, r)
	if greeting == "" {
		return nil
	}

	promptEnabled := r.GreetingMenuPromptEnabled == nil || *r.GreetingMenuPromptEnabled
	if r.HasDynamicMenus() && promptEnabled {
		root := r.RootMenuID()
		e.setState(t, model.StateMenuDynamic, map[string]any{"current": root, "stack": []any{}})
		prompt := r.GreetingMenuPromptText
		if prompt == "" {
			prompt = r.MenuTextFor(root)
		}
		delay := r.GreetingMenuPromptDelay.Seconds("s")
		return &model.Reply{
			Text: greeting + "\n\n" + prompt,
			Messages: []model.ReplyMessage{
				{Text: greeting},
				{Text: prompt, DelaySeconds: delay},
			},
		}
	}

	if r.HasDynamicMenus() {
		root := r.RootMenuID()
		e.setState(t, model.StateMenuDynamic, map[string]any{"current": root, "stack": []any{}})
		rep := model.TextReply(greeting + "\n\n" + r.MenuTextFor(root))
		return &rep
	}
	e.setState(t, model.StateMenuMain, nil)
	rep := model.TextReply(greeting + "\n\n" + r.StaticMenuText())
	return &rep
}

// isMenuRequest: /start, a menu_accept phrase, or a menu synonym.
func (e *Engine) isMenuRequest(t *turn) bool {
	if t.lower == "/start" {
		return true
	}
	for _, phrase := range t.r.Synonyms["menu_accept"] {
		if phrase != "" && t.norm == utils.NormalizeText(phrase) {
			return true
		}
	}
	return t.r.MatchesSynonym("menu", t.lower)
}

// stageMenuRequest shows the menu on an explicit request.
func (e *Engine) stageMenuRequest(t *turn) *model.Reply {
	if !t.r.MenusEnabled() || !e.isMenuRequest(t) {
		return nil
	}
	if t.r.HasDynamicMenus() {
		root := t.r.RootMenuID()
		e.setState(t, model.StateMenuDynamic, map[string]any{"current": root, "stack": []any{}})
		rep := model.TextReply(t.r.MenuTextFor(root))
		return &rep
	}
	e.setState(t, model.StateMenuMain, nil)
	rep := model.TextReply(t.r.StaticMenuText())
	return &rep
}

// stageDynamicMenu matches the text against the current menu's option
// triggers. Unmatched input falls through to the later stages instead of
// re-showing the menu.
func (e *Engine) stageDynamicMenu(t *turn) *model.Reply {
	if t.stateName != model.StateMenuDynamic || !t.r.HasDynamicMenus() {
		return nil
	}
	current, _ := t.stateData["current"].(string)
	if current == "" {
		current = t.r.RootMenuID()
	}
	stack := stringSlice(t.stateData["stack"])

	for _, opt := range t.r.ActiveOptions(current) {
		if !triggersMatch(opt.Triggers, t.lower) {
			continue
		}
		if rep := e.dispatchOption(t, opt, current, stack); rep != nil {
			return rep
		}
	}
	return nil
}

func triggersMatch(triggers []string, lower string) bool {
	for _, trig := range triggers {
		w := strings.ToLower(trig)
		if w != "" && (lower == w || strings.Contains(lower, w)) {
			return true
		}
	}
	return false
}

// stageFaqSubmenu lets the user leave the FAQ submenu back to the menu it
// was entered from.
func (e *Engine) stageFaqSubmenu(t *turn) *model.Reply {
	if t.stateName != model.StateMenuFaq {
		return nil
	}
	backTriggers := map[string]bool{"menu": true, "volver": true, "back": true, "9": true}
	if !backTriggers[t.lower] && !t.r.MatchesSynonym("menu", t.lower) {
		return nil
	}
	if ret, ok := t.stateData["return_menu"].(map[string]any); ok {
		current, _ := ret["current"].(string)
		if current == "" {
			current = t.r.RootMenuID()
		}
		e.setState(t, model.StateMenuDynamic, map[string]any{"current": current, "stack": ret["stack"]})
		rep := model.TextReply(t.r.MenuTextFor(current))
		return &rep
	}
	e.setState(t, model.StateMenuMain, nil)
	rep := model.TextReply(t.r.StaticMenuText())
	return &rep
}

// stageStaticMenu is the legacy single-level menu: synonym shortcuts to the
// FAQ submenu, the ticket flow or escalation; anything else re-shows it.
func (e *Engine) stageStaticMenu(t *turn) *model.Reply {
	if t.stateName != model.StateMenuMain {
		return nil
	}
	r := t.r
	if r.MatchesSynonym("faq", t.lower) {
		e.setState(t, model.StateMenuFaq, nil)
		rep := model.TextReply(r.FaqSubmenuText())
		return &rep
	}
	if r.FeatureEnabled("tickets") && r.MatchesSynonym("ticket", t.lower) {
		return e.enterTicketFlow(t)
	}
	if r.FeatureEnabled("escalation") && r.MatchesSynonym("agent", t.lower) {
		e.clearState(t)
		rep := model.TextReply(r.EscalationMessage())
		return &rep
	}
	rep := model.TextReply(r.StaticMenuText())
	return &rep
}

// stageCatalogPrecheck serves the literal catalog and satisfaction intents
// regardless of classifier confidence.
func (e *Engine) stageCatalogPrecheck(t *turn) *model.Reply {
	if t.norm == "" {
		return nil
	}
	for i := range t.r.NLU.Intents {
		intent := &t.r.NLU.Intents[i]
		if intent.Name != "ver_catalogo" && intent.Name != "satisfaccion" {
			continue
		}
		for _, p := range intent.Patterns {
			pn := utils.NormalizeText(p)
			if pn == "" {
				continue
			}
			if t.norm == pn || strings.Contains(t.norm, pn) || strings.Contains(pn, t.norm) {
				rep := model.TextReply(e.intentReplyText(t, intent))
				return &rep
			}
		}
	}
	return nil
}

// stageShortcuts covers the literal /ticket command plus the ticket and
// agent synonym lists outside any menu.
func (e *Engine) stageShortcuts(t *turn) *model.Reply {
	r := t.r
	if r.FeatureEnabled("tickets") && (t.lower == "/ticket" || r.MatchesSynonym("ticket", t.lower)) {
		return e.enterTicketFlow(t)
	}
	if r.FeatureEnabled("escalation") && r.MatchesSynonym("agent", t.lower) {
		e.clearState(t)
		rep := model.TextReply(r.EscalationMessage())
		return &rep
	}
	return nil
}

// stageFallback always answers: a low-confidence nudge when an intent was
// close, otherwise the fallback text.
func (e *Engine) stageFallback(t *turn) *model.Reply {
	if t.nearMiss > 0 {
		rep := model.TextReply(t.r.LowConfidenceMessage())
		return &rep
	}
	rep := model.TextReply(t.r.Fallback())
	return &rep
}

// enterTicketFlow moves into ticket:ask_detail and marks the pending-ticket
// topic so an abandoned flow can be offered for resumption later.
func (e *Engine) enterTicketFlow(t *turn) *model.Reply {
	e.setState(t, model.StateTicketDetail, map[string]any{})
	ttl := t.r.Memory.TopicTTLDays
	if ttl <= 0 {
		ttl = defaultTopicTTLDays
	}
	if err := e.convs.SetTopic(t.ctx, t.user, t.chat, pendingTicketTopic, nil, ttl); err != nil {
		e.log.Warnw("topic write failed", "user", t.user, "chat", t.chat, "err", err)
	}
	rep := model.TextReply(t.r.AskDetailText())
	return &rep
}

// dispatchIntent executes a classified intent's action.
func (e *Engine) dispatchIntent(t *turn, match *nlu.IntentMatch) *model.Reply {
	r := t.r
	switch strings.ToLower(match.Action) {
	case "goto":
		if match.Intent == nil || match.Intent.Target == "" || !r.HasDynamicMenus() {
			return nil
		}
		target := match.Intent.Target
		if _, ok := r.MenuItem(target); !ok {
			return nil
		}
		e.setState(t, model.StateMenuDynamic, map[string]any{"current": target, "stack": []any{r.RootMenuID()}})
		rep := model.TextReply(r.MenuTextFor(target))
		return &rep
	case "ticket_ask_detail":
		if !r.FeatureEnabled("tickets") {
			return nil
		}
		return e.enterTicketFlow(t)
	case "escalation":
		if !r.FeatureEnabled("escalation") {
			return nil
		}
		e.clearState(t)
		rep := model.TextReply(r.EscalationMessage())
		return &rep
	case "reply":
		rep := model.TextReply(e.intentReplyText(t, match.Intent))
		return &rep
	default:
		return nil
	}
}

// dispatchOption executes a dynamic-menu option's action.
func (e *Engine) dispatchOption(t *turn, opt rules.Option, current string, stack []string) *model.Reply {
	r := t.r
	switch strings.ToLower(opt.Action) {
	case "goto":
		if opt.Target == "" {
			rep := model.TextReply(r.Fallback())
			return &rep
		}
		if _, ok := r.MenuItem(opt.Target); !ok {
			rep := model.TextReply(r.Fallback())
			return &rep
		}
		next := append(append([]string{}, stack...), current)
		e.setState(t, model.StateMenuDynamic, map[string]any{"current": opt.Target, "stack": toAnySlice(next)})
		rep := model.TextReply(r.MenuTextFor(opt.Target))
		return &rep
	case "back":
		if len(stack) > 0 {
			prev := stack[len(stack)-1]
			rest := stack[:len(stack)-1]
			e.setState(t, model.StateMenuDynamic, map[string]any{"current": prev, "stack": toAnySlice(rest)})
			rep := model.TextReply(r.MenuTextFor(prev))
			return &rep
		}
		root := r.RootMenuID()
		e.setState(t, model.StateMenuDynamic, map[string]any{"current": root, "stack": []any{}})
		rep := model.TextReply(r.MenuTextFor(root))
		return &rep
	case "faq_mode":
		e.setState(t, model.StateMenuFaq, map[string]any{
			"return_menu": map[string]any{"current": current, "stack": toAnySlice(stack)},
		})
		rep := model.TextReply(r.FaqSubmenuText())
		return &rep
	case "ticket_ask_detail":
		if !r.FeatureEnabled("tickets") {
			return nil
		}
		return e.enterTicketFlow(t)
	case "escalation":
		if !r.FeatureEnabled("escalation") {
			return nil
		}
		e.clearState(t)
		rep := model.TextReply(r.EscalationMessage())
		return &rep
	case "reply":
		// Stay on the current menu.
		e.setState(t, model.StateMenuDynamic, map[string]any{"current": current, "stack": toAnySlice(stack)})
		text := opt.ReplyText
		if text == "" && len(opt.Responses) > 0 {
			text = opt.Responses[rand.Intn(len(opt.Responses))]
		}
		if text == "" {
			text = r.Fallback()
		}
		rep := model.TextReply(text)
		return &rep
	default:
		return nil
	}
}

func (e *Engine) intentReplyText(t *turn, intent *rules.Intent) string {
	if intent == nil {
		return t.r.Fallback()
	}
	if intent.ReplyText != "" {
		return intent.ReplyText
	}
	if len(intent.Responses) > 0 {
		return intent.Responses[rand.Intn(len(intent.Responses))]
	}
	return t.r.Fallback()
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// stringSlice coerces a JSON-decoded value into []string.
func stringSlice(v any) []string {
	switch xs := v.(type) {
	case []string:
		return xs
	case []any:
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toAnySlice(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
