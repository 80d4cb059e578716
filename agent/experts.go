package agent

import (
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

func instruction(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

// creates the facilitator
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: instruction(`
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user runs the treasury of a small Argentinian business. Customers pay with
			credit and debit cards, and the card processors pay the coupons days later, minus
			fees, financial costs and tax withholdings. The user wants to know what is still
			to be credited, what was paid, and whether the books are in order.

			Devise a plan of questions to ask to each experts and come up with the best reponse to the user's request.
			Amounts are in Argentinian pesos unless told otherwise.
		`),
		},
		Library: NewLibrary(experts),
	}
}

// NewAdvisor returns an expert of card processors and Argentinian withholding
// taxes, grounded with Google Search.
func NewAdvisor() *Expert {
	return &Expert{
		Name: "Advisor",
		Description: `This is an expert of the Argentinian card payment industry.
		Very well aware of the card processors, their settlement delays and fees, and
		of the tax withholdings applied to card settlements (IVA, Ganancias, Ingresos Brutos).
		Ask the Advisor whenever you need regulatory or recent information.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: instruction(`
			You are an expert of card payments in Argentina. You can search and find about
			card processors, their plans and fees, AFIP regulations and provincial gross income
			withholding regimes. You leverage Google Search to ground your assertions in a solid truth.
			`),
		},
	}
}

// NewAccountant returns the expert reading the books through tools.
func NewAccountant(books BookFunc) *Expert {
	lib := BookTools(books)
	return &Expert{
		Name: "Accountant",
		Description: `This is the Accountant. He is in charge of reading the books:
		the card accreditations, the batch transfers to the bank and the general ledger.
		He can compute pending amounts, balances and the dashboard indicators.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: instruction(`
				You are an accountant in charge of the books of card settlements.
				You know how to use the Tools to extract relevant information about the books.
				You are part of a team of experts, yours is everything about the books. They might ask
				you questions, pardon their approximative language and figure out what they meant.

				Use the available tools to get information about
				  - pending accreditations, and when they are expected
				  - batch transfers and their state
				  - account balances
				  - the dashboard indicators and their warnings
			`),
		},
		Library: NewLibrary(lib),
	}
}
