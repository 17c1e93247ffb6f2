package submission

import "fmt"

const missingDateNote = "Note: The date was not found on the receipt, so the current time was used instead."

// composeNotes renders the free-text notes attached to the gas record.
func composeNotes(brand, address, receiptDate, user, submittedAt string, dateMissing bool) string {
	notes := fmt.Sprintf("Brand: %s\nAddress: %s\nReceipt dated %s\n(Submitted by %s at %s)",
		brand, address, receiptDate, user, submittedAt)
	if dateMissing {
		notes += "\n\n" + missingDateNote
	}
	return notes
}
