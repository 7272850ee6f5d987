package biometric

// Decision policy bounds. A request is verified only when every condition
// holds; no single condition is sufficient on its own.
const (
	maxAcceptedFraudRisk = 0.7
	minAcceptedQuality   = 0.3
)

// Decide is the final accept/reject policy. It is a pure function: identical
// inputs always produce the same decision.
func Decide(thresholdMet bool, confidenceMet bool, fraudRisk float64, spoofDetected bool, quality float64) bool {
	return thresholdMet &&
		confidenceMet &&
		fraudRisk <= maxAcceptedFraudRisk &&
		!spoofDetected &&
		quality >= minAcceptedQuality
}
