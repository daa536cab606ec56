package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("tape_list",
	mcp.WithDescription("List catalogued tapes, newest first. With search, only tapes whose title or tape label contains the term (case-insensitive) are returned."),
	mcp.WithString("search",
		mcp.Description("Substring to match against title and tape label. Empty lists everything."),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var getToolDef = mcp.NewTool("tape_get",
	mcp.WithDescription("Get one tape by id."),
	mcp.WithNumber("id",
		mcp.Required(),
		mcp.Description("Tape id"),
		mcp.Min(1),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var addToolDef = mcp.NewTool("tape_add",
	mcp.WithDescription("Add a tape to the catalog. Both fields are required and must not be blank. Storage assigns the id and creation time."),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("Film title"),
	),
	mcp.WithString("tape",
		mcp.Required(),
		mcp.Description("Label of the cassette the film is on"),
	),
	mcp.WithDestructiveHintAnnotation(false),
)

var editToolDef = mcp.NewTool("tape_edit",
	mcp.WithDescription("Change the title and/or tape label of an existing tape. Fields left out keep their current value."),
	mcp.WithNumber("id",
		mcp.Required(),
		mcp.Description("Tape id"),
		mcp.Min(1),
	),
	mcp.WithString("title",
		mcp.Description("New film title"),
	),
	mcp.WithString("tape",
		mcp.Description("New cassette label"),
	),
	mcp.WithIdempotentHintAnnotation(true),
)

var deleteToolDef = mcp.NewTool("tape_delete",
	mcp.WithDescription("Permanently remove a tape from the catalog."),
	mcp.WithNumber("id",
		mcp.Required(),
		mcp.Description("Tape id"),
		mcp.Min(1),
	),
	mcp.WithDestructiveHintAnnotation(true),
)

var statusToolDef = mcp.NewTool("tape_status",
	mcp.WithDescription("Number of catalogued tapes and the status line shown in the UI."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("tape_export",
	mcp.WithDescription("Export the whole catalog to a JSONL file. Defaults to the exports directory next to the storage file."),
	mcp.WithString("path",
		mcp.Description("Destination .jsonl file"),
	),
	mcp.WithDestructiveHintAnnotation(false),
)

var importToolDef = mcp.NewTool("tape_import",
	mcp.WithDescription("Import tapes from a JSONL export. Ids are reassigned; titles, labels and creation times are kept. Everything is written in one transaction."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Source .jsonl file"),
	),
	mcp.WithString("mode",
		mcp.Description("error (default): any invalid line aborts the import. skip: invalid lines are reported and skipped."),
		mcp.Enum("error", "skip"),
	),
	mcp.WithDestructiveHintAnnotation(false),
)
