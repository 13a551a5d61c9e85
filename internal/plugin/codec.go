package plugin

import "encoding/json"

func decodeInstanceCreateRequest(raw string) (instanceCreateRequest, error) {
	var req instanceCreateRequest
	err := json.Unmarshal([]byte(raw), &req)
	return req, err
}

type runCommandRequest struct {
	WorkDir string `json:"work_dir"`
	Command string `json:"command"`
}

func decodeRunCommandRequest(raw string) (workDir, command string, err error) {
	var req runCommandRequest
	if err = json.Unmarshal([]byte(raw), &req); err != nil {
		return "", "", err
	}
	return req.WorkDir, req.Command, nil
}
