package dialog

import (
	"fmt"
	"strings"

	"arepazo-bot/models"
	"arepazo-bot/services"
)

// All customer-facing copy lives here, next to the renderers that build
// the longer messages.

const (
	msgWelcome = "¡Hola! 👋 Bienvenido a *El Arepazo* 🫓.\nEstoy aquí para ayudarte. ¿Qué te gustaría hacer hoy?\n\n" +
		"*1.* Hacer un pedido 🫓\n*2.* Ver nuestra ubicación 📍\n*3.* Consultar el estado de mi pedido 🚚"
	msgWelcomeCaption    = "¡Bienvenido a El Arepazo!"
	msgMainMenuInvalid   = "⚠️ Por favor, selecciona una opción válida: *1*, *2* o *3*."
	msgStatusPrompt      = "🚚 Para revisar tu pedido, solo necesito tu *número de orden*. ¡Gracias!"
	msgStatusBadFormat   = "🔎 Necesito un número de orden válido en el formato: *_ABC-123_*. ¡Gracias!"
	msgStatusNotFound    = "😕 No pudimos encontrar tu orden. Revisa el número y vuelve a intentarlo."
	msgCancelled         = "🛑 Pedido cancelado. Si deseas hacer uno nuevo, solo envíanos un mensaje."
	msgMenuInvalid       = "⚠️ Opción inválida. Por favor, selecciona un número del menú."
	msgQtyInvalid        = "⚠️ Por favor, ingresa una cantidad válida (un número mayor a 0)."
	msgAddMore           = "🍽️ ¿Deseas ordenar algo más de nuestro menú?\n*1.* Sí\n*2.* No"
	msgYesNoOnly         = "⚠️ Por favor responde solo con *1* (Sí) o *2* (No)."
	msgOfferDrinks       = "🥤 ¿Te gustaría acompañar tu pedido con alguna _*bebida*_?\n*1.* Sí\n*2.* No"
	msgNoDrinksMenu      = "No se encontró el menú de bebidas."
	msgDrinkInvalid      = "⚠️ Opción inválida. Por favor selecciona una bebida válida."
	msgAddDrink          = "🥤 ¿Deseas añadir otra bebida?\n*1.* Sí\n*2.* No"
	msgSummaryInvalid    = "⚠️ Por favor selecciona una opción válida (1, 2, 3 o 4)."
	msgInstructionsAsk   = "✍️ Escribe las instrucciones para tu pedido (ej: sin cebolla, extra queso)."
	msgModifyInvalid     = "⚠️ Opción inválida."
	msgEmptyCart         = "Tu carrito está vacío. Te enviaré al menú para que puedas agregar productos."
	msgNamePrompt        = "🧾 Para finalizar, ¿a nombre de quién registramos el pedido?"
	msgPaymentPrompt     = "💳 ¿Cómo deseas pagar?\n*1.* Efectivo 💵\n*2.* Nequi 📲\n*3.* Daviplata 📲"
	msgPaymentInvalid    = "⚠️ Por favor selecciona una opción válida."
	msgCashPrompt        = "💵 ¿Con cuánto vas a pagar? (Ej: 50000)"
	msgProofPrompt       = "Perfecto. Ahora envíame el comprobante de pago (una foto o captura de pantalla)."
	msgProofNotImage     = "Por favor, envía una imagen como comprobante."
	msgProofDownloadFail = "No pude procesar el archivo que enviaste. ¿Puedes intentar enviarlo de nuevo?"
	msgProofReceived     = "Recibí tu comprobante. ¡Un momento mientras lo verifico!"
	msgProofReminder     = "¿Todo bien con el pago? Recuerda enviarme el comprobante o puedes regresar al menú principal."
	msgVerifying         = "Estamos verificando tu pago. Te avisaré tan pronto como haya una respuesta."
	msgVerifySlow        = "El administrador está tardando un poco en verificar tu pago. Te notificaré tan pronto como haya una respuesta."
	msgPaymentConfirmed  = "✅ ¡Tu pago ha sido confirmado por el administrador!"
	msgPaymentDenied     = "❌ El pago no pudo ser reconocido. ¿Quieres intentarlo de nuevo?\n\n*1.* Reenviar comprobante\n*2.* Volver al menú principal\n*3.* Hablar con un agente"
	msgPaymentDeniedHard = "❌ Tu pago ha sido denegado nuevamente. Un agente se pondrá en contacto contigo para ayudarte."
	msgDeniedInvalid     = "Por favor, elige una de las opciones: 1, 2 o 3."
	msgResendProof       = "Por favor, reenvía el comprobante de pago."
	msgBackToMenu        = "Has vuelto al menú principal. Envía un mensaje para comenzar."
	msgAgentIntro        = "Un momento, te comunicaré con un agente."
	msgAgentWait         = "Un agente se pondrá en contacto contigo pronto."
	msgWalletRestart     = "Parece que hay problemas con el número. Para continuar, por favor regresa al menú principal enviando un mensaje."
	msgInactivityWarn    = "👋 ¿Sigues ahí? Si no respondes, la conversación se cerrará pronto."
	msgInactivityEnd     = "Hemos finalizado esta conversación por inactividad. ¡No dudes en escribir de nuevo cuando quieras empezar un nuevo pedido!"
	msgInternalError     = "¡Ups! Algo salió mal de nuestro lado. Por favor, intenta de nuevo. Si el problema persiste, contacta al administrador."
)

var mainSectionTitles = map[string]string{
	models.TagGrilled: "🔥 _*A LA PLANCHA*_\n(Arepa maíz, papa, ensalada)",
	models.TagSmoked:  "💨 _*AHUMADOS*_\n(Arepa maíz, papa, ensalada)",
	models.TagSunday:  "🌟 _*ESPECIALES DE DOMINGO*_",
	models.TagPlain:   "",
}

// renderMenu numbers mains (already ordered and Sunday-filtered) and
// snacks into one 1-based index space, with "0" to cancel.
func renderMenu(mains, snacks []models.MenuItem) string {
	var b strings.Builder
	b.WriteString("¡Genial! 🎉 Aquí te comparto nuestro menú:\n\n")
	idx := 1
	lastTag := "\x00"
	for _, it := range mains {
		if it.Tag != lastTag {
			if title := mainSectionTitles[it.Tag]; title != "" {
				b.WriteString(title + "\n")
			}
			lastTag = it.Tag
		}
		fmt.Fprintf(&b, "*%d.* %s - %s\n", idx, it.Name, services.FormatPrice(it.Price))
		idx++
	}
	if len(snacks) > 0 {
		b.WriteString("\n🍢 _*PARA PICAR*_\n(Acompañados de arepa de chocolo/maíz)\n")
		for _, it := range snacks {
			fmt.Fprintf(&b, "*%d.* %s - %s\n", idx, it.Name, services.FormatPrice(it.Price))
			idx++
		}
	}
	b.WriteString("\n*0.* Cancelar")
	return b.String()
}

func renderDrinks(drinks []models.MenuItem) string {
	var b strings.Builder
	b.WriteString("🥤 Estas son nuestras bebidas:\n")
	for i, it := range drinks {
		fmt.Fprintf(&b, "*%d.* %s - %s\n", i+1, it.Name, services.FormatPrice(it.Price))
	}
	b.WriteString("\n*0.* No añadir bebidas")
	return b.String()
}

func renderSummary(s *Session) string {
	lines, total := services.CartSummary(s.Cart)
	var b strings.Builder
	b.WriteString("✅ ¡Listo! ✨ Aquí tienes el *resumen de tu pedido*:\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	fmt.Fprintf(&b, "\n\n💰 *TOTAL:* %s", services.FormatPrice(total))
	if s.Instructions != "" {
		fmt.Fprintf(&b, "\n\n📝 *Instrucciones:* \"%s\"", s.Instructions)
	}
	b.WriteString("\n\n¿Qué deseas hacer?\n\n" +
		"*1.* Modificar mi pedido ✏️\n" +
		"*2.* Añadir instrucciones especiales 📝\n" +
		"*3.* Agregar algo más\n" +
		"*4.* Confirmar y continuar ✅")
	return b.String()
}

func renderModifyList(cart []models.CartLine) string {
	var b strings.Builder
	b.WriteString("✏️ ¿Qué ítem deseas modificar?\n")
	for i, line := range cart {
		fmt.Fprintf(&b, "*%d.* %dx %s\n", i+1, line.Qty, line.Name)
	}
	b.WriteString("\n*0.* Cancelar")
	return b.String()
}

func renderStatusReport(o *models.Order) string {
	return fmt.Sprintf("📦 *Estado de tu pedido %s:* %s\n\n"+
		"🗓️ *Fecha:* %s\n"+
		"⏰ *Hora:* %s\n"+
		"📍 *Dirección:* %s\n"+
		"💳 *Método de pago:* %s\n"+
		"💰 *Total:* %s\n\n"+
		"📝 *Detalle del pedido:*\n%s",
		o.Code, o.Status, o.Date, o.Time, o.Address, o.PaymentMethod,
		services.FormatPrice(o.Total), o.Items)
}

func renderConfirmation(s *Session, code string, total int64, lines []string, minutes int) string {
	var b strings.Builder
	b.WriteString("🎉 *¡Tu pedido ha sido confirmado!* 🎉\n\n")
	fmt.Fprintf(&b, "📦 *Orden:* %s\n", code)
	fmt.Fprintf(&b, "🙋‍♂️ *Cliente:* %s\n", s.CustomerName)
	fmt.Fprintf(&b, "📍 *Dirección:* %s\n\n", s.Address)
	b.WriteString("🧾 *Detalle del pedido:*\n" + strings.Join(lines, "\n") + "\n")
	if s.Instructions != "" {
		fmt.Fprintf(&b, "\n📝 *Instrucciones:* \"%s\"\n", s.Instructions)
	}
	fmt.Fprintf(&b, "\n💰 *Total a pagar:* %s\n", services.FormatPrice(total))
	fmt.Fprintf(&b, "💳 *Método de pago:* %s", s.PaymentMethod)
	if s.PaymentMethod == models.PaymentCash && s.CashTendered > 0 {
		fmt.Fprintf(&b, "\n💵 Pagas con: %s\n", services.FormatPrice(s.CashTendered))
		fmt.Fprintf(&b, "🔁 Cambio: %s", formatChange(s.ChangeDue))
	}
	fmt.Fprintf(&b, "\n\n⏱️ Tu orden llegará en aprox. *%d minutos*.\n¡Gracias por elegirnos! 🧡", minutes)
	return b.String()
}

// formatChange spells out zero change; FormatPrice's empty string is for
// missing prices, not for an exact cash payment.
func formatChange(v int64) string {
	if v == 0 {
		return "$ 0"
	}
	return services.FormatPrice(v)
}

func renderAdminOrder(s *Session, code string, total int64, lines []string) string {
	var b strings.Builder
	b.WriteString("🚨 *NUEVO PEDIDO* 🚨\n\n")
	fmt.Fprintf(&b, "📦 *Orden:* %s\n", code)
	fmt.Fprintf(&b, "🙋‍♂️ *Cliente:* %s\n", s.CustomerName)
	fmt.Fprintf(&b, "📍 *Dirección:* %s\n\n", s.Address)
	b.WriteString("🧾 *Detalle:*\n" + strings.Join(lines, "\n") + "\n")
	if s.Instructions != "" {
		fmt.Fprintf(&b, "\n📝 *Instrucciones:* \"%s\"\n", s.Instructions)
	}
	fmt.Fprintf(&b, "\n💰 *TOTAL:* %s\n", services.FormatPrice(total))
	fmt.Fprintf(&b, "💳 *PAGO:* %s\n", s.PaymentMethod)
	return b.String()
}

func renderVerificationCaption(s *Session, total int64, lines []string) string {
	return fmt.Sprintf("📌 *Nuevo Pago Nequi por Verificar*\n\n"+
		"• *Cliente:* %s (%s)\n"+
		"• *Pedido:* %s\n"+
		"• *Monto:* %s",
		s.CustomerName, s.Identity, strings.Join(lines, ", "), services.FormatPrice(total))
}

func renderVerificationOptions(id string) string {
	return fmt.Sprintf("ID de Verificación: %s\n\n➡️ *Opciones:*\n1. Confirmar\n2. Denegar", id)
}

func renderWalletIntro(payNumber string) string {
	return fmt.Sprintf("Has elegido Nequi. Por favor, realiza el pago a nuestra línea *%s*.\n\n"+
		"Una vez hecho, por favor *escribe el número de teléfono (10 dígitos) desde el que realizaste el pago* para poder asociarlo a tu pedido.", payNumber)
}

func renderWalletRetry(remaining int) string {
	return fmt.Sprintf("El número de teléfono debe tener 10 dígitos. Por favor, inténtalo de nuevo (intentos restantes: %d).", remaining)
}

func renderCashTooLow(total int64) string {
	return fmt.Sprintf("⚠️ Por favor, ingresa un valor mayor o igual al total (%s).", services.FormatPrice(total))
}

func renderQuantityPrompt(name string) string {
	return fmt.Sprintf("✅ Perfecto, ¿cuántas unidades de *%s* te gustaría ordenar?", name)
}

func renderAddressPrompt(name string) string {
	return fmt.Sprintf("🏡 ¡Perfecto, *%s*! Por favor, indícame la dirección completa para la entrega.", name)
}

func renderModifyAction(line models.CartLine) string {
	return fmt.Sprintf("🔧 Para %dx %s, elige:\n*1.* Cambiar cantidad\n*2.* Quitar del pedido\n*0.* Cancelar", line.Qty, line.Name)
}

func renderModifyQuantityPrompt(name string) string {
	return fmt.Sprintf("¿Cuál es la nueva cantidad para *%s*?", name)
}

func renderLocation(address, mapsLink string) string {
	return fmt.Sprintf("📍 Estamos ubicados en:\n%s.\n¡Te esperamos! 🫶\n%s", address, mapsLink)
}
