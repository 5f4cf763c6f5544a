package realtime

// Socket event names are a wire contract with the client applications and
// must not be renamed.
const (
	// Client -> server.
	EventRegister                 = "register"
	EventDeregister               = "deregister"
	EventSendNewMessage           = "sendNewMessage"
	EventJoinConversation         = "joinConversation"
	EventSpSendQuotation          = "SpSendNewQuotation"
	EventClientAcceptStartBooking = "ClientAcceptStartBooking"

	// Server -> client.
	EventNewQuotation         = "NewQuotation"
	EventQuotationAccepted    = "ClientAcceptedQuotation"
	EventQuotationRejected    = "ClientRejectQuotation"
	EventBookingStartPending  = "BookingStartRequested"
	EventBookingStartDenied   = "BookingStartDenied"
	EventBookingStarted       = "ClientAcceptStartBooking"
	EventBookingFinishPending = "BookingFinishRequested"
	EventBookingFinishDenied  = "BookingFinishDenied"
	EventBookingFinished      = "ClientAcceptFinishBooking"
	EventBookingDisputed      = "BookingDisputed"
	EventBookingExpired       = "BookingExpired"
	EventBookingReminder      = "BookingReminder"
	EventBookingCancelled     = "BookingCancelled"
	EventNewMessage           = "newMessage"
)
