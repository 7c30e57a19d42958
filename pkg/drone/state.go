package drone

//State of a report file as it moves through a run
type State int

const (
	Discovered State = iota
	Parsed
	BulkTransformed
	Delivering
	Delivered
	PartiallyFailed
	Compressed
	Archived
	ParseError
	ArchiveError
)

func (s State) String() string {
	switch s {
	case Discovered:
		return "DISCOVERED"
	case Parsed:
		return "PARSED"
	case BulkTransformed:
		return "BULK_TRANSFORMED"
	case Delivering:
		return "DELIVERING"
	case Delivered:
		return "DELIVERED"
	case PartiallyFailed:
		return "PARTIALLY_FAILED"
	case Compressed:
		return "COMPRESSED"
	case Archived:
		return "ARCHIVED"
	case ParseError:
		return "PARSE_ERROR"
	case ArchiveError:
		return "ARCHIVE_ERROR"
	default:
		return "UNKNOWN"
	}
}
