package assistant

import "fmt"

const systemPrompt = `You are the assistant of the Damshique expense system's admin dashboard.
Answer the administrator's question using ONLY the facts provided as JSON.
Do not invent numbers, invoices, merchants or users that are not in the facts.
Keep answers short and concrete. Amounts are in the system's base currency.`

func buildUserPrompt(query, factsJSON string) string {
	return fmt.Sprintf("Facts:\n%s\n\nQuestion: %s", factsJSON, query)
}
