// Package prompt builds the three prompt strings the agent sends to the
// model. All builders are pure string construction, no I/O.
package prompt

import (
	"fmt"
	"strings"

	"github.com/lakestreetlabs/finquill/internal/tools"
)

// Capability describes the registered tools and the JSON shape the model
// must use to call one. The result is prepended to the plan prompt.
func Capability(ts []tools.Tool) string {
	var sb strings.Builder
	sb.WriteString("You are an intelligent assistant capable of calling external tools to perform tasks.\n")
	sb.WriteString("When given a user's query, analyze whether to use a tool or respond directly.\n")
	sb.WriteString("If using a tool, produce a JSON object with:\n")
	sb.WriteString("  {\n")
	sb.WriteString("    \"tool\": \"<tool_name>\",  // or null if no tool is needed\n")
	sb.WriteString("    \"args\": {<arguments_for_the_tool>}\n")
	sb.WriteString("  }\n\n")
	sb.WriteString("Available tools:\n")
	for _, t := range ts {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name(), t.Description())
	}
	return sb.String()
}

// Plan asks the model for an ordered tool-execution plan. The model must
// reply with nothing but {"plans": [...]}; a null or omitted tool name
// signals "no action".
func Plan(userInput, capability string) string {
	var sb strings.Builder
	if capability != "" {
		sb.WriteString(capability)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Decide which tool (if any) should be used for the user's request. You can get creative.\n\n")
	sb.WriteString("You can call any of the registered tools, several of them, or none.\n\n")
	sb.WriteString("You can break the request into multiple parts and call a tool for each part if needed.\n\n")
	sb.WriteString(`Return only a JSON object in this exact format: {"plans": [{"tool": "ToolName", "args": {...}}, ...]}.`)
	sb.WriteString("\n\nNo reasoning, just the JSON.\n\n")
	fmt.Fprintf(&sb, "User input: %q\n", userInput)
	return sb.String()
}

// Synthesis asks the model to turn tool output into the final user-facing
// answer.
func Synthesis(userInput, toolOutput string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a helpful financial and web search assistant. The user asked: %q\n\n", userInput)
	fmt.Fprintf(&sb, "Here is the data retrieved from tools:\n%s\n\n", toolOutput)
	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Extract the specific numerical values, prices, dates, and key information from the tool output\n")
	sb.WriteString("2. Present the information in a clear, human-readable format\n")
	sb.WriteString("3. For stock data, include: current price, change amount, change percentage, and trading date\n")
	sb.WriteString("4. For search results, summarize the key findings\n")
	sb.WriteString("5. Use the actual values from the data - do not leave placeholders like '$.' or 'October ,'\n")
	sb.WriteString("6. Be specific and accurate with numbers, dates, and percentages\n")
	sb.WriteString("7. If there are errors in the tool output, mention them clearly\n\n")
	sb.WriteString("Provide a helpful and informative response using the actual data from the tools. ")
	sb.WriteString("If there is no result from the tools, answer the user's question from your own knowledge ")
	sb.WriteString("and do not mention that the tool output is empty.")
	return sb.String()
}
