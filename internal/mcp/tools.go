package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var seedToolDef = mcp.NewTool("capacity_seed",
	mcp.WithDescription("Generate a synthetic capacity log and store it as a new dataset. Returns the dataset ID and observation count."),
	mcp.WithNumber("years",
		mcp.Description("Years of history to simulate (defaults to the configured default_years)"),
	),
	mcp.WithString("name",
		mcp.Description("Optional unique label for the dataset"),
	),
	mcp.WithNumber("seed",
		mcp.Description("Fixed random seed; the same seed reproduces the same observation values (record ids are always freshly minted)"),
	),
)

var generateToolDef = mcp.NewTool("capacity_generate",
	mcp.WithDescription("Generate a synthetic capacity log without storing it. Returns the observations directly; use limit to keep the response small."),
	mcp.WithNumber("years",
		mcp.Description("Years of history to simulate (defaults to the configured default_years)"),
	),
	mcp.WithNumber("seed",
		mcp.Description("Fixed random seed for reproducible output"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Return only the newest N observations"),
	),
)

var listToolDef = mcp.NewTool("capacity_list",
	mcp.WithDescription("List stored datasets, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum datasets to return (default 20, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Pagination offset"),
	),
)

var fetchToolDef = mcp.NewTool("capacity_fetch",
	mcp.WithDescription("Fetch observations from a dataset, newest first. Address the dataset by id or name, not both."),
	mcp.WithString("id",
		mcp.Description("Dataset ID"),
	),
	mcp.WithString("name",
		mcp.Description("Dataset name"),
	),
	mcp.WithString("state",
		mcp.Description("Filter by state: resourced, stretched, or depleted"),
		mcp.Enum("resourced", "stretched", "depleted"),
	),
	mcp.WithString("category",
		mcp.Description("Filter by category tag: sensory, demand, or social"),
		mcp.Enum("sensory", "demand", "social"),
	),
	mcp.WithNumber("since",
		mcp.Description("Inclusive lower bound, epoch milliseconds"),
	),
	mcp.WithNumber("until",
		mcp.Description("Inclusive upper bound, epoch milliseconds"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum observations to return (default 100, max 500)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Pagination offset"),
	),
)

var statsToolDef = mcp.NewTool("capacity_stats",
	mcp.WithDescription("Aggregate statistics for a dataset: counts by state, category, and weekday, note coverage, and time span. Address the dataset by id or name, not both."),
	mcp.WithString("id",
		mcp.Description("Dataset ID"),
	),
	mcp.WithString("name",
		mcp.Description("Dataset name"),
	),
)

var exportToolDef = mcp.NewTool("capacity_export",
	mcp.WithDescription("Export a dataset to a JSONL file. Address the dataset by id or name, not both. Without a path the file lands in the exports directory."),
	mcp.WithString("id",
		mcp.Description("Dataset ID"),
	),
	mcp.WithString("name",
		mcp.Description("Dataset name"),
	),
	mcp.WithString("path",
		mcp.Description("Target file path; must end in .jsonl and sit inside an allowed directory"),
	),
)

var purgeToolDef = mcp.NewTool("capacity_purge",
	mcp.WithDescription("Permanently delete datasets. Either address one dataset by id or name, or pass older_than_days to delete every dataset seeded before the cutoff."),
	mcp.WithString("id",
		mcp.Description("Dataset ID"),
	),
	mcp.WithString("name",
		mcp.Description("Dataset name"),
	),
	mcp.WithNumber("older_than_days",
		mcp.Description("Delete all datasets created more than this many days ago"),
	),
)
