package schedule

// BuildPromptSchedule assembles the prompt keyframe map for one conditioning
// source: keys at or past duration are dropped, the optional head and tail
// prompts are joined onto every entry with commas, and hold keys are inserted
// per fixedRatio.
func BuildPromptSchedule(prompts map[int]string, head, tail string, fixedRatio float64, duration int) Map[string] {
	m := NewMap[string]()
	for k, p := range prompts {
		if k >= duration {
			continue
		}
		if head != "" {
			p = head + "," + p
		}
		if tail != "" {
			p = p + "," + tail
		}
		m.Set(k, p)
	}
	return WithHolds(m, duration, fixedRatio)
}
