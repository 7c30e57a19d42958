package diagnostics

//Progress of a drone run over the report files of one source
type Progress struct {
	ClientID    string
	ProjectID   string
	Position    int64 //how many files processed so far
	Total       int64 //total number of files found for the source
	CurrentFile string
	State       string //pipeline state the current file reached
}
