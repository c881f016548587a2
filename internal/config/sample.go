package config

// SampleConfig returns a fully commented configuration file
func SampleConfig() string {
	return `# logdash configuration
version: "1.0"

backend:
  # Origin of the log scanning / RAG service
  url: "http://localhost:8000"
  # Timeout for status, pattern and query requests
  timeout: 60s
  # Timeout for uploads and rescans of large files
  upload_timeout: 5m
  # GET requests are retried on network errors and 5xx responses
  max_retries: 3

poll:
  # Delay between index status checks after an upload
  interval: 3s
  # Consecutive failed checks before the index is marked as failed
  max_failures: 5
  # Give up waiting for the index after this long
  timeout: 10m

ui:
  # default, high-contrast or minimal
  theme: "default"
  no_emoji: false
  # Rows per page in the errors tab
  page_size: 50
  # Quick prompts in the chat tab (F1..F4)
  suggestions:
    - "Why did the server crash?"
    - "What is the root cause of the errors?"
    - "Which errors occur most frequently?"
    - "Summarize the critical issues"

output:
  # text, json, markdown or csv
  default_format: "text"
  # auto, always or never
  color_mode: "auto"
  verbose: false
  # The dashboard writes its logs here; empty discards them
  log_file: ""
  timestamp_format: "15:04:05"

watch:
  # Wait this long after the last write before re-uploading
  debounce: 500ms
`
}

// MinimalSampleConfig returns a configuration with only the common settings
func MinimalSampleConfig() string {
	return `version: "1.0"
backend:
  url: "http://localhost:8000"
output:
  default_format: "text"
`
}
