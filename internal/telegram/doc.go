// Package telegram sends the run summary to a chat through the Telegram Bot API.
//
// Only the sendMessage method is used:
//
//	POST <api>/bot<token>/sendMessage
//	{"chat_id": "...", "text": "..."}
//
// A request succeeds when the response is 2xx and its body reports "ok": true.
// Network errors, 429 and 5xx responses are retried once after a short pause;
// any other failure is returned as a *NotifyError. The bot token never appears
// in errors or logs.
package telegram
