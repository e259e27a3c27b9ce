// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		startHelpLogger.WithField("sender_id", c.Sender().ID).Info("Processing /start command")
		return c.Send("Hi! I rotate your study time across subjects. Create a cycle with /newcycle, log time with /log, and ask /now what to study. /help lists everything.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		startHelpLogger.WithField("sender_id", c.Sender().ID).Info("Processing /help command")
		var helpText strings.Builder
		helpText.WriteString("Commands:\n\n")
		helpText.WriteString("`/newcycle <name> <Subject=min,...>`\n - Create a cycle and make it active. Example: `/newcycle Exams Math=60,Physics=30`\n\n")
		helpText.WriteString("`/now`\n - What to study now, how close you are, and what's next.\n\n")
		helpText.WriteString("`/log <subject> <minutes>`\n - Log a study session. Time on the current cycle subject counts toward it.\n\n")
		helpText.WriteString("`/advance`\n - Move to the next subject once the current target is met.\n\n")
		helpText.WriteString("`/skip`\n - Move on without meeting the target.\n\n")
		helpText.WriteString("`/resetcycle`\n - Start a fresh lap of the active cycle.\n\n")
		helpText.WriteString("`/cycles`, `/use <id>`, `/delcycle <id>`\n - List, switch and delete cycles. Switching keeps progress.\n\n")
		helpText.WriteString("`/editcycle <Subject=min,...>`\n - Replace the active cycle's subject list (restarts its lap).\n\n")
		helpText.WriteString("`/stats`\n - Lifetime minutes per subject.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
