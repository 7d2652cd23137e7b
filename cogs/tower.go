package cogs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"skyrush/games/tower"
	"skyrush/render"
	"skyrush/utils"
)

const (
	towerPrefix    = "tower_"
	towerImageName = "tower.png"

	actionDifficulty = "diff"
	actionPick       = "pick"
	actionCashout    = "cash"
	actionView       = "view"
)

// TowerEngine is the part of the game engine the gateway drives.
type TowerEngine interface {
	Start(ctx context.Context, userID string, bet decimal.Decimal) (tower.Snapshot, error)
	ChooseDifficulty(ctx context.Context, id, requesterID string, d tower.Difficulty) (tower.Snapshot, error)
	PickTile(ctx context.Context, id, requesterID string, row, column int) (tower.Snapshot, error)
	Cashout(ctx context.Context, id, requesterID string) (tower.Snapshot, error)
	Snapshot(ctx context.Context, id, requesterID string) (tower.Snapshot, error)
}

// Tower turns Discord commands and button presses into engine calls and renders the result.
type Tower struct {
	engine  TowerEngine
	limiter utils.Limiter
	timeout time.Duration
	prefix  string
	logger  *zap.Logger
}

func NewTower(engine TowerEngine, limiter utils.Limiter, timeout time.Duration, prefix string, logger *zap.Logger) *Tower {
	return &Tower{
		engine:  engine,
		limiter: limiter,
		timeout: timeout,
		prefix:  prefix,
		logger:  logger.Named("cogs.tower"),
	}
}

// RegisterTowerCommands returns the /tower slash command
func RegisterTowerCommands() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "tower",
		Description: "Climb the tower. Each safe tile raises your multiplier",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "bet",
				Description: "Points to stake, up to two decimals",
				Required:    true,
			},
		},
	}
}

// towerAction is a decoded button custom ID.
type towerAction struct {
	Kind       string
	SessionID  string
	Difficulty tower.Difficulty
	Row        int
	Column     int
}

func (a towerAction) customID() string {
	switch a.Kind {
	case actionDifficulty:
		return fmt.Sprintf("%s%s_%s_%s", towerPrefix, actionDifficulty, a.SessionID, a.Difficulty)
	case actionPick:
		return fmt.Sprintf("%s%s_%s_%d_%d", towerPrefix, actionPick, a.SessionID, a.Row, a.Column)
	default:
		return fmt.Sprintf("%s%s_%s", towerPrefix, a.Kind, a.SessionID)
	}
}

// parseCustomID decodes tower_diff_<id>_<mode>, tower_pick_<id>_<row>_<col>, tower_cash_<id>
// and tower_view_<id>.
func parseCustomID(customID string) (towerAction, error) {
	parts := strings.Split(customID, "_")
	if len(parts) < 3 || parts[0]+"_" != towerPrefix || parts[2] == "" {
		return towerAction{}, fmt.Errorf("malformed tower custom id %q", customID)
	}
	a := towerAction{Kind: parts[1], SessionID: parts[2]}

	switch a.Kind {
	case actionDifficulty:
		if len(parts) != 4 {
			return towerAction{}, fmt.Errorf("malformed difficulty id %q", customID)
		}
		d, err := tower.ParseDifficulty(parts[3])
		if err != nil {
			return towerAction{}, err
		}
		a.Difficulty = d
	case actionPick:
		if len(parts) != 5 {
			return towerAction{}, fmt.Errorf("malformed pick id %q", customID)
		}
		row, err := strconv.Atoi(parts[3])
		if err != nil {
			return towerAction{}, fmt.Errorf("bad row in %q: %w", customID, err)
		}
		col, err := strconv.Atoi(parts[4])
		if err != nil {
			return towerAction{}, fmt.Errorf("bad column in %q: %w", customID, err)
		}
		a.Row, a.Column = row, col
	case actionCashout, actionView:
		if len(parts) != 3 {
			return towerAction{}, fmt.Errorf("malformed %s id %q", a.Kind, customID)
		}
	default:
		return towerAction{}, fmt.Errorf("unknown tower action %q", a.Kind)
	}
	return a, nil
}

// parseBet accepts plain decimal amounts like 100 or 12.50.
func parseBet(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: bet is required", tower.ErrInvalidArgument)
	}
	bet, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", tower.ErrInvalidArgument, raw)
	}
	if err := tower.ValidateBet(bet); err != nil {
		return decimal.Zero, err
	}
	return bet, nil
}

// buildComponents returns the buttons for snap. Terminal games get none.
func buildComponents(snap tower.Snapshot) []discordgo.MessageComponent {
	switch snap.Status {
	case tower.StatusChoosing:
		buttons := make([]discordgo.MessageComponent, 0, len(tower.Difficulties))
		styles := map[tower.Difficulty]discordgo.ButtonStyle{
			tower.Easy:   discordgo.SuccessButton,
			tower.Medium: discordgo.PrimaryButton,
			tower.Hard:   discordgo.DangerButton,
		}
		for _, d := range tower.Difficulties {
			id := towerAction{Kind: actionDifficulty, SessionID: snap.SessionID, Difficulty: d}.customID()
			buttons = append(buttons, utils.CreateButton(id, d.Label(), styles[d], false, nil))
		}
		buttons = append(buttons, refreshButton(snap.SessionID))
		return []discordgo.MessageComponent{utils.CreateActionRow(buttons...)}
	case tower.StatusActive:
	default:
		return []discordgo.MessageComponent{}
	}

	var rows []discordgo.MessageComponent
	if snap.CurrentRow < tower.Rows {
		tiles := make([]discordgo.MessageComponent, 0, tower.Columns)
		for c := 0; c < tower.Columns; c++ {
			id := towerAction{Kind: actionPick, SessionID: snap.SessionID, Row: snap.CurrentRow, Column: c}.customID()
			tiles = append(tiles, utils.CreateButton(id, strconv.Itoa(c+1), discordgo.SecondaryButton, false,
				&discordgo.ComponentEmoji{Name: "❔"}))
		}
		rows = append(rows, utils.CreateActionRow(tiles...))
	}

	cashID := towerAction{Kind: actionCashout, SessionID: snap.SessionID}.customID()
	label := "Cash Out"
	if snap.CanCashout() {
		label = fmt.Sprintf("Cash Out (%s)", utils.FormatPoints(tower.Payout(snap.Bet, snap.Multiplier)))
	}
	rows = append(rows, utils.CreateActionRow(
		utils.CreateButton(cashID, label, discordgo.SuccessButton, !snap.CanCashout(), &discordgo.ComponentEmoji{Name: "💰"}),
		refreshButton(snap.SessionID),
	))
	return rows
}

// refreshButton redraws the board from the stored state.
func refreshButton(sessionID string) discordgo.MessageComponent {
	id := towerAction{Kind: actionView, SessionID: sessionID}.customID()
	return utils.CreateButton(id, "", discordgo.SecondaryButton, false, &discordgo.ComponentEmoji{Name: "🔄"})
}

// messageForError maps an engine error onto the ephemeral reply shown to the player.
func messageForError(err error) string {
	switch tower.KindOf(err) {
	case tower.KindNotFound:
		return "Game not found"
	case tower.KindForbidden:
		return "❌ This isn't your Tower game!"
	case tower.KindConflict:
		switch tower.ConflictReason(err) {
		case tower.ReasonAlreadyChosen:
			return "Already chosen"
		case tower.ReasonGameOver:
			return "Game over"
		case tower.ReasonRowRevealed:
			return "Row already revealed"
		case tower.ReasonWrongRow:
			return "That row isn't open yet"
		case tower.ReasonTowerCleared:
			return "You reached the top. Cash out!"
		case tower.ReasonNotChosen:
			return "Pick a difficulty first"
		default:
			return "Game state changed, please try again"
		}
	case tower.KindInsufficientFunds:
		return "Insufficient balance"
	case tower.KindInvalidArgument:
		return "Invalid bet. Use a positive amount with at most two decimals"
	default:
		return "Tower interaction error"
	}
}

func towerEmbed(snap tower.Snapshot, playerName string) *discordgo.MessageEmbed {
	title := fmt.Sprintf("🏰 Tower · %s", playerName)
	var (
		description string
		color       = utils.BotColor
	)
	switch snap.Status {
	case tower.StatusChoosing:
		description = "Choose a difficulty. Easy has 3 safe tiles per row, Medium 2, Hard 1."
		color = utils.PendingColor
	case tower.StatusLost:
		description = fmt.Sprintf("💥 You hit a trap on row %d and lost **%s** %s.",
			snap.CurrentRow, utils.FormatPoints(snap.Bet), utils.PointsEmoji)
		color = utils.ErrorColor
	case tower.StatusCashedOut:
		description = fmt.Sprintf("💰 Cashed out at **x%s** for **%s** %s (%s).",
			snap.Multiplier.StringFixed(2), utils.FormatPoints(snap.Winnings), utils.PointsEmoji,
			utils.FormatProfit(snap.Profit()))
		color = utils.WinColor
	default:
		if snap.CurrentRow >= tower.Rows {
			description = "🏆 You cleared every row! Cash out to collect."
		} else {
			description = fmt.Sprintf("Pick a tile on row **%d**. Next multiplier **x%s**.",
				snap.CurrentRow+1, snap.NextMultiplier.StringFixed(2))
		}
	}

	embed := utils.CreateBrandedEmbed(title, description, color)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Bet", Value: fmt.Sprintf("%s %s", utils.FormatPoints(snap.Bet), utils.PointsEmoji), Inline: true},
		{Name: "Multiplier", Value: "x" + snap.Multiplier.StringFixed(2), Inline: true},
	}
	if snap.Difficulty != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Mode", Value: snap.Difficulty.Label(), Inline: true})
	}
	embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + towerImageName}
	return embed
}

// view renders the full message for snap.
func (t *Tower) view(snap tower.Snapshot, playerName string) (*discordgo.MessageEmbed, []discordgo.MessageComponent, []*discordgo.File, error) {
	img, err := render.Tower(snap, playerName)
	if err != nil {
		return nil, nil, nil, err
	}
	return towerEmbed(snap, playerName), buildComponents(snap), []*discordgo.File{utils.PNGFile(towerImageName, img)}, nil
}

func (t *Tower) allow(ctx context.Context, userID string) bool {
	ok, err := t.limiter.Allow(ctx, userID)
	if err != nil {
		// a broken limiter backend should not lock players out
		t.logger.Warn("rate limiter failed", zap.String("user_id", userID), zap.Error(err))
		return true
	}
	return ok
}

func (t *Tower) recoverEvent(event string) {
	if r := recover(); r != nil {
		t.logger.Error("tower handler panicked",
			zap.String("event", event),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()),
		)
	}
}

// HandleMessage starts a game from "<prefix>tower <bet>".
func (t *Tower) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer t.recoverEvent("message")
	if m.Author == nil || m.Author.Bot {
		return
	}
	args := strings.Fields(m.Content)
	if len(args) == 0 || args[0] != t.prefix+"tower" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if !t.allow(ctx, m.Author.ID) {
		return
	}
	if len(args) < 2 {
		t.reply(s, m, utils.ErrorEmbed("Tower", fmt.Sprintf("Usage: `%stower <bet>`", t.prefix)))
		return
	}
	bet, err := parseBet(args[1])
	if err != nil {
		t.reply(s, m, utils.ErrorEmbed("Tower", messageForError(err)))
		return
	}

	snap, err := t.engine.Start(ctx, m.Author.ID, bet)
	if err != nil {
		t.reply(s, m, utils.ErrorEmbed("Tower", messageForError(err)))
		return
	}
	embed, components, files, err := t.view(snap, utils.DisplayName(m.Member, m.Author))
	if err != nil {
		t.logger.Error("render tower", zap.String("session_id", snap.SessionID), zap.Error(err))
		return
	}
	_, err = s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
		Files:      files,
		Reference:  m.Reference(),
	})
	if err != nil {
		t.logger.Error("send tower message", zap.String("session_id", snap.SessionID), zap.Error(err))
	}
}

func (t *Tower) reply(s *discordgo.Session, m *discordgo.MessageCreate, embed *discordgo.MessageEmbed) {
	if _, err := s.ChannelMessageSendEmbedReply(m.ChannelID, embed, m.Reference()); err != nil {
		t.logger.Warn("reply failed", zap.String("channel_id", m.ChannelID), zap.Error(err))
	}
}

// HandleCommand handles the /tower slash command. The response is deferred before the
// engine runs so a slow store cannot outlive the acknowledgement window.
func (t *Tower) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer t.recoverEvent("command")
	user := utils.InteractionUser(i)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if !t.allow(ctx, user.ID) {
		t.respondError(s, i, "Slow down a little")
		return
	}

	var raw string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "bet" {
			raw = opt.StringValue()
		}
	}
	bet, err := parseBet(raw)
	if err != nil {
		t.respondError(s, i, messageForError(err))
		return
	}

	if err := utils.DeferInteractionResponse(s, i, false); err != nil {
		t.logger.Warn("defer tower command", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	reply := &interactionReply{s: s, i: i}

	snap, err := t.engine.Start(ctx, user.ID, bet)
	if err != nil {
		t.editError(reply, messageForError(err))
		return
	}
	embed, components, files, err := t.view(snap, utils.DisplayName(i.Member, user))
	if err != nil {
		t.logger.Error("render tower", zap.String("session_id", snap.SessionID), zap.Error(err))
		t.editError(reply, "Tower interaction error")
		return
	}
	if err := reply.Edit(embed, components, files); err != nil {
		t.logger.Error("send tower response", zap.String("session_id", snap.SessionID), zap.Error(err))
	}
}

// componentReply answers one button press.
type componentReply interface {
	// Reject answers with an ephemeral message instead of acknowledging.
	Reject(message string) error
	Ack() error
	// Followup sends an ephemeral message after Ack.
	Followup(message string) error
	Edit(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, files []*discordgo.File) error
}

type interactionReply struct {
	s *discordgo.Session
	i *discordgo.InteractionCreate
}

func (r *interactionReply) Reject(message string) error {
	return utils.RespondEphemeral(r.s, r.i, message)
}

func (r *interactionReply) Ack() error {
	return utils.DeferComponentUpdate(r.s, r.i)
}

func (r *interactionReply) Followup(message string) error {
	return utils.TryEphemeralFollowup(r.s, r.i, message)
}

func (r *interactionReply) Edit(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, files []*discordgo.File) error {
	return utils.EditOriginalInteraction(r.s, r.i, embed, components, files)
}

// HandleInteraction handles tower_* button presses.
func (t *Tower) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer t.recoverEvent("component")
	user := utils.InteractionUser(i)
	if user == nil {
		return
	}
	t.handleComponent(&interactionReply{s: s, i: i}, i.MessageComponentData().CustomID,
		user.ID, utils.DisplayName(i.Member, user))
}

// handleComponent acknowledges the press before touching the engine. Rejections after
// that point go out as ephemeral followups, and a conflict redraws the board from the
// stored state so stale buttons disappear.
func (t *Tower) handleComponent(reply componentReply, customID, userID, playerName string) {
	action, err := parseCustomID(customID)
	if err != nil {
		t.logger.Debug("ignoring tower button", zap.Error(err))
		t.reject(reply, "Tower interaction error")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if !t.allow(ctx, userID) {
		t.reject(reply, "Slow down a little")
		return
	}
	if err := reply.Ack(); err != nil {
		t.logger.Warn("defer tower update", zap.String("session_id", action.SessionID), zap.Error(err))
		return
	}

	snap, err := t.dispatch(ctx, action, userID)
	if err != nil {
		t.followup(reply, messageForError(err))
		if tower.KindOf(err) != tower.KindConflict {
			return
		}
		if snap, err = t.engine.Snapshot(ctx, action.SessionID, userID); err != nil {
			t.logger.Debug("refresh after conflict", zap.String("session_id", action.SessionID), zap.Error(err))
			return
		}
	}

	embed, components, files, err := t.view(snap, playerName)
	if err != nil {
		t.logger.Error("render tower", zap.String("session_id", snap.SessionID), zap.Error(err))
		t.followup(reply, "Tower interaction error")
		return
	}
	if err := reply.Edit(embed, components, files); err != nil {
		t.logger.Error("edit tower message", zap.String("session_id", snap.SessionID), zap.Error(err))
		t.followup(reply, "Your move was saved but the board could not be refreshed. Press 🔄 to redraw it.")
	}
}

func (t *Tower) dispatch(ctx context.Context, a towerAction, userID string) (tower.Snapshot, error) {
	switch a.Kind {
	case actionDifficulty:
		return t.engine.ChooseDifficulty(ctx, a.SessionID, userID, a.Difficulty)
	case actionPick:
		return t.engine.PickTile(ctx, a.SessionID, userID, a.Row, a.Column)
	case actionCashout:
		return t.engine.Cashout(ctx, a.SessionID, userID)
	case actionView:
		return t.engine.Snapshot(ctx, a.SessionID, userID)
	}
	return tower.Snapshot{}, errors.New("unknown tower action " + a.Kind)
}

// respondError sends an error response
func (t *Tower) respondError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	if err := utils.RespondEphemeral(s, i, message); err != nil {
		t.logger.Warn("ephemeral reply failed", zap.String("message", message), zap.Error(err))
	}
}

func (t *Tower) reject(reply componentReply, message string) {
	if err := reply.Reject(message); err != nil {
		t.logger.Warn("ephemeral reply failed", zap.String("message", message), zap.Error(err))
	}
}

func (t *Tower) followup(reply componentReply, message string) {
	if err := reply.Followup(message); err != nil {
		t.logger.Warn("ephemeral followup failed", zap.String("message", message), zap.Error(err))
	}
}

// editError replaces a deferred command response with an error embed.
func (t *Tower) editError(reply componentReply, message string) {
	if err := reply.Edit(utils.ErrorEmbed("Tower", message), []discordgo.MessageComponent{}, nil); err != nil {
		t.logger.Warn("tower error reply failed", zap.String("message", message), zap.Error(err))
	}
}
