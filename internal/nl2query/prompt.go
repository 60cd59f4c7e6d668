package nl2query

import (
	"fmt"
	"strings"

	"github.com/docmesh/docmesh/internal/schema"
)

const SystemPrompt = "You are a MongoDB query assistant that converts natural language to MongoDB queries."

// BuildPrompt embeds every database and collection of the snapshot. There is
// no truncation, so very large deployments produce very large prompts.
func BuildPrompt(text string, snapshot *schema.Snapshot) string {
	var structure strings.Builder
	structure.WriteString("Available databases and collections:\n")
	if snapshot != nil {
		for _, db := range snapshot.Databases {
			fmt.Fprintf(&structure, "- Database: %s, Collections: %s\n", db.Name, strings.Join(db.CollectionNames(), ", "))
		}
	}

	return fmt.Sprintf(`You are a MongoDB query assistant. Convert the following natural language query to a structured MongoDB operation.

%s
User query: %s

IMPORTANT: Make sure to select the correct database and collection names from the available options listed above.

Output ONLY a valid JSON object with the following structure with NO explanations or additional text:
{
  "database": "[exact database name from the list above]",
  "collection": "[exact collection name from the list above]",
  "operation": "[find/aggregate/insert_one/insert_many/update_one/update_many/delete_one/delete_many/count]",
  "parameters": {
    "filter": {
      // filter conditions go here
    },
    // other operation-specific parameters
  }
}

For find operations, ALWAYS put filter conditions inside a "filter" object within parameters.
`, structure.String(), text)
}
