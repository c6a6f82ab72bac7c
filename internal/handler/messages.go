package handler

import (
	"fmt"

	"confessionrelay/internal/domain"
	"confessionrelay/internal/telegram"
)

// Reply texts use Telegram's legacy Markdown. Any user supplied value must go
// through telegram.Escape before it is interpolated.

func startText(firstName string, opts BotOptions, quota domain.QuotaDecision) string {
	return fmt.Sprintf(`👋 *¡Hola %s!*

Bienvenido al *Bot de Confesiones Anónimas* 🔒

📝 *¿Cómo funciona?*
• Escribe tu confesión y envíamela
• Yo la publicaré de forma *100%% anónima* en el canal
• Nadie sabrá que fuiste tú

💬 *Puedes confesar:*
• Lo que sientes
• Secretos
• Experiencias
• Pensamientos
• ¡Lo que quieras!

⚠️ *Límite:* %d confesiones por día
📊 *Te quedan hoy:* %d/%d

🎯 *Comandos disponibles:*
/start - Iniciar el bot
/help - Ayuda
/soporte - Contactar administrador
/stats - Estadísticas del bot

👇 *Escribe tu confesión ahora (mínimo %d palabras):*`,
		telegram.Escape(firstName),
		opts.MaxPerDay,
		quota.Remaining(), quota.Max,
		opts.MinWords,
	)
}

func helpText(opts BotOptions) string {
	return fmt.Sprintf(`❓ *Centro de Ayuda*

📌 *Información:*

*¿Es realmente anónimo?*
✅ Sí, tu identidad nunca se comparte. El mensaje aparece como enviado por el bot.

*¿Puedo enviar fotos?*
✅ Sí, puedes enviar texto, fotos, o ambos juntos.

*¿Cuánto tarda en publicarse?*
⏱️ Inmediatamente

*¿Cuántas confesiones puedo enviar?*
📊 Máximo %d confesiones por día

📞 *¿Necesitas ayuda?*
Usa el comando /soporte para contactar al administrador.

👤 *Administrador:* @%s
🤖 *Bot:* @%s`,
		opts.MaxPerDay,
		telegram.Escape(opts.SupportUsername),
		telegram.Escape(opts.BotUsername),
	)
}

func supportText(opts BotOptions) string {
	support := telegram.Escape(opts.SupportUsername)
	return fmt.Sprintf(`📞 *Contacto con Soporte*

¿Tienes problemas, sugerencias o reportes?

👤 *Administrador:* @%s

💬 *Cómo contactar:*
1. Haz clic en el enlace: t.me/%s
2. O escribe directamente en Telegram

⏰ *Horario de atención:*
• Respuesta en 24-48 horas

🤖 *Bot:* @%s`,
		support,
		support,
		telegram.Escape(opts.BotUsername),
	)
}

const adminOnlyText = "❌ Este comando es solo para el administrador."

func statsText(stats *domain.Stats, adminName string, opts BotOptions) string {
	return fmt.Sprintf(`📊 *Estadísticas del Bot*

📬 *Total de confesiones:* %d
📅 *Confesiones hoy:* %d
👥 *Usuarios:* %d
⏳ *Publicaciones pendientes:* %d
⚠️ *Publicaciones fallidas:* %d
👤 *Admin:* %s

💡 *Gracias por usar nuestro bot!*

🤖 @%s`,
		stats.Total,
		stats.Today,
		stats.Users,
		stats.PendingPublications,
		stats.FailedPublications,
		telegram.Escape(adminName),
		telegram.Escape(opts.BotUsername),
	)
}

func quotaReachedText(out domain.Outcome) string {
	return fmt.Sprintf("❌ *Límite diario alcanzado*\n\n"+
		"📊 Ya has enviado %d/%d confesiones hoy.\n"+
		"⏰ Vuelve mañana para enviar más.\n\n"+
		"💡 *Consejo:* Espera hasta mañana para compartir más confesiones.\n\n"+
		"¡Gracias por participar! 💙",
		out.Count, out.Max)
}

func tooShortText(out domain.Outcome, minWords int) string {
	missing := minWords - out.WordCount
	if out.Kind == domain.KindPhoto {
		return fmt.Sprintf("❌ *Descripción muy corta.*\n\n"+
			"📝 *Palabras:* %d/%d\n"+
			"⚠️ *Faltan:* %d palabras\n\n"+
			"💡 *Escribe más detalles sobre tu foto.*",
			out.WordCount, minWords, missing)
	}
	return fmt.Sprintf("❌ *Tu confesión es muy corta.*\n\n"+
		"📝 *Palabras:* %d/%d\n"+
		"⚠️ *Faltan:* %d palabras\n\n"+
		"💡 *Consejo:* Cuéntanos más detalles. ¿Qué sientes? ¿por qué? ¿cuándo ocurrió?\n\n"+
		"👉 *Escribe al menos %d palabras.*",
		out.WordCount, minWords, missing, minWords)
}

func tooLongText(maxChars int) string {
	return fmt.Sprintf("❌ La confesión es muy larga. Máximo %d caracteres.", maxChars)
}

func missingCaptionText(minWords int) string {
	return fmt.Sprintf("❌ *Las fotos deben incluir descripción.*\n\n"+
		"📝 *Requisito:* Mínimo %d palabras explicando la foto.\n\n"+
		"💡 *Ejemplo:* 'Esta foto me recuerda cuando...' y cuenta tu historia.",
		minWords)
}

func acceptedText(out domain.Outcome) string {
	if out.Kind == domain.KindPhoto {
		return fmt.Sprintf("✅ *¡Foto enviada con éxito!*\n\n"+
			"📊 *Tu límite:* %d/%d confesiones hoy\n"+
			"Se publicará en el canal.",
			out.Count, out.Max)
	}
	return fmt.Sprintf("✅ *¡Confesión enviada con éxito!*\n\n"+
		"📝 *Palabras:* %d\n"+
		"📊 *Tu límite:* %d/%d confesiones hoy\n"+
		"⏰ *Publicada:* En breves momentos\n\n"+
		"¿Quieres enviar otra? ¡Escribe de nuevo!",
		out.WordCount, out.Count, out.Max)
}

const genericErrorText = "❌ Hubo un error al enviar tu confesión.\n\n" +
	"Por favor intenta de nuevo en unos minutos.\n\n" +
	"Si el problema persiste: /soporte"
