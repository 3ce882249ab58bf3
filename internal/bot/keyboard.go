package bot

import tele "gopkg.in/telebot.v3"

// Menu button labels. These are the routing keys for reply-keyboard
// presses, which arrive as plain text messages.
const (
	BtnSpin     = "🎰 Spin"
	BtnWithdraw = "💰 Pul yechish"
	BtnBonus    = "🎁 Kunlik bonus"
	BtnReferral = "👥 Referal"

	BtnStats         = "📊 Statistika"
	BtnTxHistory     = "📜 Tranzaksiyalar"
	BtnChannelAdd    = "➕ Kanal qo‘shish"
	BtnChannelRemove = "❌ Kanal o‘chirish"
	BtnBack          = "🔙 Orqaga"
)

// MainMenu returns the main reply keyboard.
func MainMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(
		menu.Row(menu.Text(BtnSpin), menu.Text(BtnWithdraw)),
		menu.Row(menu.Text(BtnBonus), menu.Text(BtnReferral)),
	)
	return menu
}

// AdminMenu returns the admin panel reply keyboard.
func AdminMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(
		menu.Row(menu.Text(BtnStats), menu.Text(BtnTxHistory)),
		menu.Row(menu.Text(BtnChannelAdd), menu.Text(BtnChannelRemove)),
		menu.Row(menu.Text(BtnBack)),
	)
	return menu
}
