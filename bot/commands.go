package bot

import (
	"fmt"

	tg "github.com/SUMERGeg/lostfound/core/telegram"
	"github.com/SUMERGeg/lostfound/core/telegram/commands"
	"github.com/SUMERGeg/lostfound/core/telegram/helpers"
	"github.com/SUMERGeg/lostfound/flow"

	tele "gopkg.in/telebot.v4"
)

const helpText = `Я помогаю составить объявление о пропаже или находке.

Команды:
/start — главное меню
/lost — сообщить о пропаже
/found — сообщить о находке
/cancel — прервать текущий диалог
/help — эта справка

В любой момент диалога можно написать «отмена».`

// registerCommands wires bot commands into the shared registry.
func registerCommands(reg *tg.Registry, engine *flow.Engine) {
	reg.RegisterCommand("/start", commands.Command{
		Description: "Главное меню",
		Handler:     startHandler(engine),
	})
	reg.RegisterCommand("/help", commands.Command{
		Description: "Справка",
		Aliases:     []string{"помощь"},
		Handler: func(c tele.Context) error {
			return helpers.SendMD(c, helpText)
		},
	})
	reg.RegisterCommand("/dialogs", commands.Command{
		Description: "Активные диалоги",
		AdminOnly:   true,
		Hidden:      true,
		Handler:     dialogsHandler(engine),
	})
}

// startHandler drops any in-progress dialogue and shows the main menu.
func startHandler(engine *flow.Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := helpers.BuildContext(c)
		err := engine.Reset(ctx, c.Sender().ID, newResponder(c))
		return ignoreUserResolution(err)
	}
}

// dialogsHandler reports how many dialogues are currently in progress.
func dialogsHandler(engine *flow.Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := helpers.BuildContext(c)
		n, err := engine.Store().Count(ctx)
		if err != nil {
			return helpers.SendText(c, "Не удалось получить статистику.")
		}
		return helpers.SendText(c, fmt.Sprintf("Активных диалогов: %d", n))
	}
}
