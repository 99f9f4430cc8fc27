// Package chat is the boundary to the chat platform.
//
// # Overview
//
// The admin commands only need two things from the platform: deliver a text
// message to a chat, and list the custom emojis the bot's community uses.
// [Platform] captures that. Incoming traffic is normalized into [Event] values
// so the command layer never sees platform types.
//
// # Telegram
//
// [Telegram] implements Platform on top of the Bot API:
//
//   - Listen long-polls getUpdates and turns messages into events
//     (commands, member joins, member leaves)
//   - Send retries when the API answers 429 with retry_after, up to
//     sendRetryLimit attempts
//   - Emojis lists the stickers of the configured sticker set; a sticker's
//     file_unique_id is the emoji id the rest of the bot records usage under
//
// Telegram user ids double as private chat ids, so a direct message is a Send
// to the user's id.
package chat
