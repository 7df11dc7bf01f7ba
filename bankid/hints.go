package bankid

// Hint codes the login backend acts on
const (
	HintOutstandingTransaction = "outstandingTransaction"
	HintNoClient               = "noClient"
	HintStarted                = "started"
	HintUserSign               = "userSign"
	HintUserMrtd               = "userMrtd"
	HintExpiredTransaction     = "expiredTransaction"
	HintCertificateErr         = "certificateErr"
	HintUserCancel             = "userCancel"
	HintCancelled              = "cancelled"
	HintStartFailed            = "startFailed"
	HintUserDeclinedCall       = "userDeclinedCall"
)

var userMessages = map[string]string{
	HintOutstandingTransaction: "RFA13",
	HintNoClient:               "RFA1",
	HintStarted:                "RFA14",
	HintUserSign:               "RFA9",
	HintUserMrtd:               "RFA23",
	HintExpiredTransaction:     "RFA8",
	HintCertificateErr:         "RFA16",
	HintUserCancel:             "RFA6",
	HintCancelled:              "RFA3",
	HintStartFailed:            "RFA17",
	HintUserDeclinedCall:       "RFA21",
}

// UserMessage returns the recommended user message code (RFA1..RFA23) for a hint code.
// Unknown failed hints map to RFA22 and unknown pending hints to RFA21.
func UserMessage(status, hintCode string) string {
	if msg, ok := userMessages[hintCode]; ok {
		return msg
	}
	if status == StatusFailed {
		return "RFA22"
	}
	return "RFA21"
}
