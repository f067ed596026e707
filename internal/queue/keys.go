package queue

import "fmt"

func readyKey(q Name) string      { return fmt.Sprintf("queue:%s:ready", q) }
func delayedKey(q Name) string    { return fmt.Sprintf("queue:%s:delayed", q) }
func processingKey(q Name) string { return fmt.Sprintf("queue:%s:processing", q) }
func jobKey(q Name, id string) string { return fmt.Sprintf("queue:%s:job:%s", q, id) }
func dedupKey(q Name, jobName string) string { return fmt.Sprintf("queue:%s:dedup:%s", q, jobName) }
func completedKey(q Name) string  { return fmt.Sprintf("queue:%s:completed", q) }
func failedKey(q Name) string     { return fmt.Sprintf("queue:%s:failed", q) }
