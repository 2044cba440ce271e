package logger

import "time"

// timeNow is swapped in tests for stable output.
var timeNow = time.Now
