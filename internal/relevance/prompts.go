package relevance

import "fmt"

func listingPrompt(keyword, url string) string {
	return fmt.Sprintf(`Evaluate how specifically the e-commerce category page (%[2]s) is focused on the product type or topic "%[1]s".

Choose exactly one relevance level:
- "Closely Related": the page is primarily and specifically dedicated to "%[1]s" products. Most listed products directly match "%[1]s" and the page title or breadcrumbs reflect that focus.
- "Loosely Related": the page includes products matching "%[1]s" but is a broader category in which other product types make up a significant share. The title or breadcrumbs indicate the broader scope. Give examples.
- "Unrelated": the page does not feature products matching "%[1]s".

Respond ONLY with JSON in this format:
{"Relevant": "(Closely Related, Loosely Related, Unrelated)", "Analysis": "(A concise justification based on the definitions above. If Closely Related, confirm the specific focus on '%[1]s'. If Loosely Related, describe the broader scope that includes '%[1]s'. If Unrelated, state that '%[1]s' products are absent.)"}`, keyword, url)
}

func detailPrompt(keyword, url string) string {
	return fmt.Sprintf(`Evaluate the landing page (%[2]s) for relevance to the specific product type or topic "%[1]s". The page is Related only if its product literally is "%[1]s" or includes "%[1]s" as a named feature, component or bundled item. Belonging to the same general category or serving a similar purpose is not enough.

Respond ONLY with JSON in this format:
{"Relevance": "(Related/Unrelated)", "Analysis": "(A brief explanation. If Related, explain how the page matches '%[1]s' or includes it as a feature or component. If Unrelated, explain the mismatch between '%[1]s' and the products on the page.)"}`, keyword, url)
}

func combinedPrompt(keyword, url string) string {
	return fmt.Sprintf(`Analyze the page at %[2]s.

First, determine its primary type. Choose ONE of: "PLP" (product listing or category page), "PDP" (product detail page), "Brand Page" (page dedicated to one brand), "Article" (blog post or informational content), "Other" (homepage, contact, help and similar).

Second, evaluate its relevance to the keyword "%[1]s":
- For "PLP" or "Brand Page", use "Closely Related", "Loosely Related" or "Unrelated" depending on how well the product selection matches "%[1]s".
- For "PDP", use "Related" ONLY if the product clearly is "%[1]s" (the title or description names it as "%[1]s" or an extremely close variant). Products that merely serve a similar purpose or share a general category are "Unrelated".
- For "Article" or "Other", use "N/A".

Respond ONLY with JSON in this format:
{"determined_type": "(PLP/PDP/Brand Page/Article/Other)", "relevance": "(Closely Related/Loosely Related/Unrelated/Related/N/A)", "analysis": "(Your analysis)"}`, keyword, url)
}

func stringSchema(enum ...string) map[string]any {
	s := map[string]any{"type": "string"}
	if len(enum) > 0 {
		s["enum"] = enum
	}
	return s
}

func objectSchema(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

var (
	listingSchema = objectSchema([]string{"Relevant", "Analysis"}, map[string]any{
		"Relevant": stringSchema("Closely Related", "Loosely Related", "Unrelated"),
		"Analysis": stringSchema(),
	})
	detailSchema = objectSchema([]string{"Relevance", "Analysis"}, map[string]any{
		"Relevance": stringSchema("Related", "Unrelated"),
		"Analysis":  stringSchema(),
	})
	combinedSchema = objectSchema([]string{"determined_type", "relevance", "analysis"}, map[string]any{
		"determined_type": stringSchema("PLP", "PDP", "Brand Page", "Article", "Other"),
		"relevance":       stringSchema("Closely Related", "Loosely Related", "Unrelated", "Related", "N/A"),
		"analysis":        stringSchema(),
	})
)
