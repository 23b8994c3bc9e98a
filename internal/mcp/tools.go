package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

var convertToolDef = mcp.NewTool("mnemo_convert",
	mcp.WithDescription("Convert a number into Korean keyword slots. Omit session_id to start a new session; "+
		"re-submitting the same digits keeps locked slots."),
	mcp.WithString("input", mcp.Required(), mcp.Description("Number to convert; non-digits are ignored")),
	mcp.WithString("session_id", mcp.Description("Existing session to convert in")),
)

var regenerateToolDef = mcp.NewTool("mnemo_regenerate",
	mcp.WithDescription("Pick new keywords for every unlocked slot of a session."),
	mcp.WithString("session_id", mcp.Required()),
)

var lockToolDef = mcp.NewTool("mnemo_lock",
	mcp.WithDescription("Lock, unlock or toggle a slot, or lock/unlock all slots. Locked slots survive regenerate."),
	mcp.WithString("session_id", mcp.Required()),
	mcp.WithString("action", mcp.Enum("toggle", "lock", "unlock", "lock_all", "unlock_all"),
		mcp.Description("Default: toggle")),
	mcp.WithNumber("index", mcp.Description("Slot index; required unless action is lock_all or unlock_all")),
)

var selectToolDef = mcp.NewTool("mnemo_select",
	mcp.WithDescription("Choose one of a slot's candidates by position."),
	mcp.WithString("session_id", mcp.Required()),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Slot index")),
	mcp.WithNumber("candidate", mcp.Required(), mcp.Description("Candidate position within the slot")),
)

var overrideToolDef = mcp.NewTool("mnemo_override",
	mcp.WithDescription("Replace a slot with your own word. The slot is locked and the word is remembered for its digits."),
	mcp.WithString("session_id", mcp.Required()),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Slot index")),
	mcp.WithString("word", mcp.Required()),
)

var sessionToolDef = mcp.NewTool("mnemo_session",
	mcp.WithDescription("Show, reset or delete a session."),
	mcp.WithString("session_id", mcp.Required()),
	mcp.WithString("action", mcp.Enum("get", "reset", "delete"), mcp.Description("Default: get")),
)

var lookupToolDef = mcp.NewTool("mnemo_lookup",
	mcp.WithDescription("List keyword candidates for each chunk of a number without creating a session."),
	mcp.WithString("input", mcp.Required()),
)

var pinToolDef = mcp.NewTool("mnemo_pin",
	mcp.WithDescription("Build a fixed-length PIN from words, filling short yields from a theme or a padding pattern."),
	mcp.WithArray("words", stringItems, mcp.Description("Seed words; ignored when session_id is set")),
	mcp.WithString("session_id", mcp.Description("Seed from this session's current words")),
	mcp.WithNumber("length", mcp.Description("PIN length 1-20; default from config")),
	mcp.WithString("theme", mcp.Description("Theme pool for extra words, e.g. animals")),
)

var digitsToolDef = mcp.NewTool("mnemo_digits",
	mcp.WithDescription("Map Korean words to digits by their leading consonants."),
	mcp.WithArray("words", mcp.Required(), stringItems),
	mcp.WithBoolean("explain", mcp.Description("Include a per-character breakdown")),
)

var alphabetToolDef = mcp.NewTool("mnemo_alphabet",
	mcp.WithDescription("Show the digit to consonant table."),
)

var teachToolDef = mcp.NewTool("mnemo_teach",
	mcp.WithDescription("Remember a word for a 1-3 digit code. Taught words are offered first."),
	mcp.WithString("code", mcp.Required()),
	mcp.WithString("word", mcp.Required()),
)

var taughtToolDef = mcp.NewTool("mnemo_taught",
	mcp.WithDescription("List taught words, newest first."),
)

var forgetToolDef = mcp.NewTool("mnemo_forget",
	mcp.WithDescription("Forget a taught word."),
	mcp.WithString("code", mcp.Required()),
	mcp.WithString("word", mcp.Required()),
)

var themesToolDef = mcp.NewTool("mnemo_themes",
	mcp.WithDescription("List stored theme pools, or the words of one theme."),
	mcp.WithString("theme", mcp.Description("Show this theme's words")),
)

var themeAddToolDef = mcp.NewTool("mnemo_theme_add",
	mcp.WithDescription("Add words to a stored theme pool."),
	mcp.WithString("theme", mcp.Required()),
	mcp.WithArray("words", mcp.Required(), stringItems),
)

var exportToolDef = mcp.NewTool("mnemo_export",
	mcp.WithDescription("Export your keyword rows and taught words to a JSONL file."),
	mcp.WithString("path", mcp.Description("Default: ~/.mnemo/exports/keywords-<user>-<timestamp>.jsonl")),
	mcp.WithBoolean("include_global", mcp.Description("Also export the shared keyword rows")),
)

var importToolDef = mcp.NewTool("mnemo_import",
	mcp.WithDescription("Import keyword rows and taught words from a JSONL export."),
	mcp.WithString("path", mcp.Required()),
	mcp.WithString("mode", mcp.Enum("error", "replace", "skip"), mcp.Description("Collision handling; default: error")),
	mcp.WithString("user_id", mcp.Description("Assign imported user records to this user")),
)
