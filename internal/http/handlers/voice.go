package handlers

import "net/http"

// voiceTwiML greets the caller and holds the line until a human picks up.
const voiceTwiML = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
	<Say voice="alice" language="en-US">Hello! Thank you for contacting our salon. A human agent will be with you shortly to help with your appointment booking. Please hold the line.</Say>
	<Play loop="0">http://com.twilio.music.classical.s3.amazonaws.com/BusyStrings.mp3</Play>
</Response>`

// Voice handles POST /voice, the escalation call's TwiML endpoint.
func Voice(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(voiceTwiML))
}
