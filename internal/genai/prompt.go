package genai

import "fmt"

const adPromptTemplate = `You are creating an advertisement image for an artisan-made product.

Product details from artisan:
"%s"

Additional details from AI analysis of the product image:
"%s"

Generate a high-quality advertisement image that:
- Highlights the product attractively
- Uses clean, aesthetic, and minimal design
- Adds subtle background or props that complement the product
- Makes the product the clear focus
- Looks suitable for an online shop or catalog ad`

// AdPrompt builds the fixed advertisement prompt around the two descriptions.
func AdPrompt(artisanDescription, imageDescription string) string {
	return fmt.Sprintf(adPromptTemplate, artisanDescription, imageDescription)
}
