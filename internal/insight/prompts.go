package insight

import (
	"fmt"

	"insight-oracle-go/internal/models"
)

var categoryPrompts = map[models.Category]string{
	models.CategoryCrypto:    "You are a cryptocurrency expert. Analyze the following crypto-related query with insights on market trends, technology, and potential implications. Be informative and balanced in your analysis.",
	models.CategoryMarket:    "You are a market analysis expert. Provide insights on market sentiment, trends, and potential market movements related to the following query. Include relevant market indicators and analysis.",
	models.CategoryBusiness:  "You are a business strategy consultant. Provide strategic business advice and insights for the following query. Focus on actionable recommendations and business implications.",
	models.CategoryTechnical: "You are a technical analysis expert. Provide detailed technical analysis and insights for the following query. Include technical indicators, patterns, and analytical perspectives.",
	models.CategoryGeneral:   "You are a knowledgeable AI assistant. Provide comprehensive and helpful insights for the following query. Be informative, accurate, and balanced in your response.",
}

// BuildPrompt frames the query with the category's expert persona. Unknown
// categories fall back to the general persona.
func BuildPrompt(query string, category models.Category) string {
	persona, ok := categoryPrompts[category]
	if !ok {
		persona = categoryPrompts[models.CategoryGeneral]
	}
	return fmt.Sprintf("%s\n\nQuery: %s", persona, query)
}
