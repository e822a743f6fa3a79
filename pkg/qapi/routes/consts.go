package routes

// ServicePath prefixes every job operation.
const ServicePath = "/nisysmgmt/v1"

var (
	// Security accepts either an API key or a bearer token.
	Security = []map[string][]string{
		{"apiKey": {}},
		{"bearer": {}},
	}
)

type Tag string

const (
	TagJobs   Tag = "jobs"
	TagHealth Tag = "health"
)

func (t Tag) String() string { return string(t) }

func AllTags() []string {
	return []string{
		TagJobs.String(),
		TagHealth.String(),
	}
}
