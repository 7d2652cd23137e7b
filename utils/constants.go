package utils

// General Configuration
const (
	BotName      = "SkyRush"
	BotColor     = 0x00E5A8
	ErrorColor   = 0xE74C3C
	WinColor     = 0x2ECC71
	PendingColor = 0xF39C12
	InfoColor    = 0x3498DB
	PointsEmoji  = "🪙"
	FooterIcon   = "https://cdn.discordapp.com/embed/avatars/0.png"
)

// Economy
const (
	// PointsPerLTC converts webhook deposit amounts to points
	PointsPerLTC     = 1000
	LeaderboardLimit = 10
)

// Messages
const (
	UnderConstructionMessage = "🚧 **%s** is under construction. Try `%stower <bet>` in the meantime!"
	UnknownCommandMessage    = "Unknown command! Use `%shelp` to see available %s commands."
	WithdrawReviewMessage    = "📨 Withdrawal request for **%s** points to `%s` received. An admin will review it."
	DepositMessage           = "📥 Send LTC to your personal deposit address:\n`%s`\nPoints are credited once the transfer confirms (1 LTC = %d points)."
)
