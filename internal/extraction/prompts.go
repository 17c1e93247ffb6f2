package extraction

import "github.com/google/generative-ai-go/genai"

const receiptPrompt = "Obtain the total cost, gallons purchased, date and time (with time rounded to the whole minute), store brand, and store address from this receipt."

const (
	odometerDashboardPrompt   = "Obtain the current odometer reading shown on the vehicle dashboard in this photo. Report only the digits of the mileage, ignoring any trip meter."
	odometerHandwrittenPrompt = "Obtain the odometer reading handwritten on this receipt. It is a number written by hand somewhere on the paper, separate from the printed text."
)

// odometerPromptFor selects the instruction text for the photo kind the
// odometer reading appears in.
func odometerPromptFor(imageContext ImageContext) string {
	if imageContext == ContextReceipt {
		return odometerHandwrittenPrompt
	}
	return odometerDashboardPrompt
}

// receiptSchema constrains the model response for full receipt extraction.
// datetime is intentionally not required: receipts without a printed date
// should omit it rather than invent one.
var receiptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"totalCost": {
			Type:        genai.TypeNumber,
			Format:      "float",
			Description: "Total cost of the fuel purchase",
		},
		"gallonsPurchased": {
			Type:        genai.TypeNumber,
			Format:      "float",
			Description: "Number of gallons purchased",
		},
		"datetime": {
			Type:        genai.TypeString,
			Description: "Date and time of the purchase, formatted as MM/DD/YYYY HH:MM. Omit if not printed on the receipt.",
		},
		"storeBrand": {
			Type:        genai.TypeString,
			Description: "Brand of the gas station",
		},
		"storeAddress": {
			Type:        genai.TypeString,
			Description: "Address of the gas station",
		},
	},
	Required: []string{"totalCost", "gallonsPurchased", "storeBrand", "storeAddress"},
}

// odometerSchema constrains the model response for odometer-only extraction.
var odometerSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"odometerReading": {
			Type:        genai.TypeInteger,
			Description: "The odometer reading in whole miles",
		},
	},
	Required: []string{"odometerReading"},
}
