package compare

// Progress receives batch comparison progress
type Progress interface {
	Start(total int)
	Increment()
	Finish()
}

// NopProgress discards progress updates
type NopProgress struct{}

func (NopProgress) Start(int)  {}
func (NopProgress) Increment() {}
func (NopProgress) Finish()    {}
