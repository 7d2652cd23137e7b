package cogs

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"skyrush/models"
	"skyrush/utils"
)

var (
	ltcAddressPattern = regexp.MustCompile(`^ltc1[a-z0-9]{25,35}$`)
	mentionPattern    = regexp.MustCompile(`^<@!?(\d+)>$`)
)

// placeholder games that only answer with a notice
var underConstruction = map[string]string{
	"crash":     "Crash",
	"roulette":  "Roulette",
	"lotto":     "Lotto",
	"blackjack": "Blackjack",
	"coinflip":  "Coinflip",
}

// AccountStore is what the economy commands need from storage.
type AccountStore interface {
	GetAccount(ctx context.Context, userID string) (models.Account, error)
	Leaderboard(ctx context.Context, limit int) ([]models.Account, error)
	SetLevel(ctx context.Context, userID string, level int) error
	Credit(ctx context.Context, userID string, amount decimal.Decimal) error
}

// Economy serves balance, leaderboard, admin and wallet placeholder commands.
type Economy struct {
	accounts AccountStore
	limiter  utils.Limiter
	board    *utils.LeaderboardCache
	timeout  time.Duration
	prefix   string
	logger   *zap.Logger
}

func NewEconomy(accounts AccountStore, limiter utils.Limiter, timeout time.Duration, prefix string, logger *zap.Logger) *Economy {
	return &Economy{
		accounts: accounts,
		limiter:  limiter,
		board:    utils.NewLeaderboardCache(30 * time.Second),
		timeout:  timeout,
		prefix:   prefix,
		logger:   logger.Named("cogs.economy"),
	}
}

// RegisterEconomyCommands returns the slash commands served by Economy
func RegisterEconomyCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "balance", Description: "Check your point balance"},
		{Name: "leaderboard", Description: "Top players by points"},
	}
}

// invocation is one parsed command with the caller's identity.
type invocation struct {
	name     string
	args     []string
	userID   string
	username string
	admin    bool
}

// parseCommand splits "<prefix>name args..." and reports false for other messages.
func parseCommand(prefix, content string) (string, []string, bool) {
	if !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// parseMention extracts the user ID from <@id>, <@!id> or a raw snowflake.
func parseMention(s string) (string, bool) {
	if m := mentionPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return s, true
	}
	return "", false
}

// DepositAddress is the per-user address shown until wallet integration exists.
func DepositAddress(userID string) string {
	return "ltc1uniqueaddress_" + userID
}

// execute runs inv and returns the embed to send.
func (e *Economy) execute(ctx context.Context, inv invocation) (*discordgo.MessageEmbed, error) {
	if title, ok := underConstruction[inv.name]; ok {
		return utils.CreateBrandedEmbed(title, fmt.Sprintf(utils.UnderConstructionMessage, title, e.prefix), utils.PendingColor), nil
	}

	switch inv.name {
	case "balance", "bal":
		return e.balance(ctx, inv)
	case "leaderboard", "lb":
		return e.leaderboard(ctx)
	case "add":
		return e.add(ctx, inv)
	case "setlevel":
		return e.setLevel(ctx, inv)
	case "deposit":
		return utils.CreateBrandedEmbed("Deposit",
			fmt.Sprintf(utils.DepositMessage, DepositAddress(inv.userID), utils.PointsPerLTC), utils.InfoColor), nil
	case "withdraw":
		return e.withdraw(inv), nil
	case "help", "info":
		return e.help(), nil
	}
	return utils.ErrorEmbed("Unknown command",
		fmt.Sprintf(utils.UnknownCommandMessage, e.prefix, utils.BotName)), nil
}

func (e *Economy) balance(ctx context.Context, inv invocation) (*discordgo.MessageEmbed, error) {
	acc, err := e.accounts.GetAccount(ctx, inv.userID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	rank := acc.GetRank()
	embed := utils.CreateBrandedEmbed(
		fmt.Sprintf("💰 %s's Balance", inv.username),
		fmt.Sprintf("You currently have **%s** %s", utils.FormatPoints(acc.Points), utils.PointsEmoji),
		rank.Color,
	)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Level", Value: strconv.Itoa(acc.Level), Inline: true},
		{Name: "Rank", Value: fmt.Sprintf("%s %s", rank.Icon, rank.Name), Inline: true},
	}
	return embed, nil
}

func (e *Economy) leaderboard(ctx context.Context) (*discordgo.MessageEmbed, error) {
	top, ok := e.board.Get(utils.LeaderboardLimit)
	if !ok {
		var err error
		top, err = e.accounts.Leaderboard(ctx, utils.LeaderboardLimit)
		if err != nil {
			return nil, fmt.Errorf("leaderboard: %w", err)
		}
		e.board.Set(utils.LeaderboardLimit, top)
	}
	if len(top) == 0 {
		return utils.CreateBrandedEmbed("🏆 Leaderboard", "No players yet.", utils.InfoColor), nil
	}
	var b strings.Builder
	for i, acc := range top {
		medal := fmt.Sprintf("`#%d`", i+1)
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		fmt.Fprintf(&b, "%s <@%s> **%s** %s\n", medal, acc.UserID, utils.FormatPoints(acc.Points), utils.PointsEmoji)
	}
	return utils.CreateBrandedEmbed("🏆 Leaderboard", b.String(), utils.InfoColor), nil
}

func (e *Economy) add(ctx context.Context, inv invocation) (*discordgo.MessageEmbed, error) {
	if !inv.admin {
		return utils.ErrorEmbed("Permission denied", "Only administrators can add points."), nil
	}
	if len(inv.args) < 2 {
		return utils.ErrorEmbed("Add", fmt.Sprintf("Usage: `%sadd <@user> <amount>`", e.prefix)), nil
	}
	target, ok := parseMention(inv.args[0])
	if !ok {
		return utils.ErrorEmbed("Add", "Mention a user to credit."), nil
	}
	amount, err := decimal.NewFromString(inv.args[1])
	if err != nil || !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return utils.ErrorEmbed("Add", "Amount must be positive with at most two decimals."), nil
	}
	if err := e.accounts.Credit(ctx, target, amount); err != nil {
		return nil, fmt.Errorf("credit %s: %w", target, err)
	}
	e.board.Invalidate()
	e.logger.Info("admin credit",
		zap.String("admin_id", inv.userID),
		zap.String("user_id", target),
		zap.String("amount", amount.StringFixed(2)),
	)
	return utils.CreateBrandedEmbed("Points added",
		fmt.Sprintf("Added **%s** %s to <@%s>.", utils.FormatPoints(amount), utils.PointsEmoji, target), utils.WinColor), nil
}

func (e *Economy) setLevel(ctx context.Context, inv invocation) (*discordgo.MessageEmbed, error) {
	if !inv.admin {
		return utils.ErrorEmbed("Permission denied", "Only administrators can set levels."), nil
	}
	if len(inv.args) < 2 {
		return utils.ErrorEmbed("Set level", fmt.Sprintf("Usage: `%ssetlevel <@user> <level>`", e.prefix)), nil
	}
	target, ok := parseMention(inv.args[0])
	if !ok {
		return utils.ErrorEmbed("Set level", "Mention a user."), nil
	}
	level, err := strconv.Atoi(inv.args[1])
	if err != nil || level < 1 {
		return utils.ErrorEmbed("Set level", "Level must be a whole number of at least 1."), nil
	}
	if err := e.accounts.SetLevel(ctx, target, level); err != nil {
		return nil, fmt.Errorf("set level %s: %w", target, err)
	}
	return utils.CreateBrandedEmbed("Level updated",
		fmt.Sprintf("<@%s> is now level **%d**.", target, level), utils.WinColor), nil
}

func (e *Economy) withdraw(inv invocation) *discordgo.MessageEmbed {
	if len(inv.args) < 2 {
		return utils.ErrorEmbed("Withdraw", fmt.Sprintf("Usage: `%swithdraw <ltc_address> <amount>`", e.prefix))
	}
	address := inv.args[0]
	if !ltcAddressPattern.MatchString(address) {
		return utils.ErrorEmbed("Withdraw", "That doesn't look like a valid LTC address.")
	}
	amount, err := decimal.NewFromString(inv.args[1])
	if err != nil || !amount.IsPositive() {
		return utils.ErrorEmbed("Withdraw", "Amount must be a positive number.")
	}
	return utils.CreateBrandedEmbed("Withdraw",
		fmt.Sprintf(utils.WithdrawReviewMessage, utils.FormatPoints(amount), address), utils.PendingColor)
}

func (e *Economy) help() *discordgo.MessageEmbed {
	p := e.prefix
	embed := utils.CreateBrandedEmbed("🌤️ "+utils.BotName, "Climb the tower, dodge the traps and cash out before you fall.", utils.BotColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Games", Value: fmt.Sprintf("`%stower <bet>` or `/tower`", p)},
		{Name: "Economy", Value: fmt.Sprintf("`%sbalance` `%sleaderboard` `%sdeposit` `%swithdraw <address> <amount>`", p, p, p, p)},
		{Name: "Admin", Value: fmt.Sprintf("`%sadd <@user> <amount>` `%ssetlevel <@user> <level>`", p, p)},
	}
	return embed
}

// HandleMessage answers prefix economy commands.
func (e *Economy) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("economy handler panicked", zap.Any("panic", r))
		}
	}()
	if m.Author == nil || m.Author.Bot {
		return
	}
	name, args, ok := parseCommand(e.prefix, m.Content)
	if !ok || name == "tower" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if allowed, err := e.limiter.Allow(ctx, m.Author.ID); err == nil && !allowed {
		return
	}

	inv := invocation{
		name:     name,
		args:     args,
		userID:   m.Author.ID,
		username: utils.DisplayName(m.Member, m.Author),
	}
	if name == "add" || name == "setlevel" {
		inv.admin = isAdmin(s, m.ChannelID, m.Author.ID)
	}

	embed, err := e.execute(ctx, inv)
	if err != nil {
		e.logger.Error("economy command failed", zap.String("command", name), zap.String("user_id", m.Author.ID), zap.Error(err))
		embed = utils.ErrorEmbed("Error", "Something went wrong. Please try again.")
	}
	if _, err := s.ChannelMessageSendEmbedReply(m.ChannelID, embed, m.Reference()); err != nil {
		e.logger.Warn("reply failed", zap.String("command", name), zap.Error(err))
	}
}

// HandleCommand answers /balance and /leaderboard.
func (e *Economy) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := utils.InteractionUser(i)
	if user == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	inv := invocation{
		name:     i.ApplicationCommandData().Name,
		userID:   user.ID,
		username: utils.DisplayName(i.Member, user),
	}
	embed, err := e.execute(ctx, inv)
	if err != nil {
		e.logger.Error("economy command failed", zap.String("command", inv.name), zap.Error(err))
		if err := utils.RespondEphemeral(s, i, "❌ Error accessing user data."); err != nil {
			e.logger.Warn("ephemeral reply failed", zap.Error(err))
		}
		return
	}
	if err := utils.SendInteractionResponse(s, i, embed, nil, nil, false); err != nil {
		e.logger.Warn("interaction reply failed", zap.String("command", inv.name), zap.Error(err))
	}
}

func isAdmin(s *discordgo.Session, channelID, userID string) bool {
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}
