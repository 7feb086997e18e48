package api

// =============================================================================
// 直连端点类型（非 webhook 前端使用）
// =============================================================================

// GenerateSceneRequest 单场景生成请求。
type GenerateSceneRequest struct {
	// 场景提示词
	ScenePrompt string `json:"scene_prompt"`
}

// SceneResponse 单场景生成响应。
type SceneResponse struct {
	Type        string `json:"type"`
	SceneURL    string `json:"sceneURL"`
	ScenePrompt string `json:"scene_prompt"`
}

// GenerateChoicesRequest 双分支选项生成请求。
type GenerateChoicesRequest struct {
	ChoiceAPrompt string `json:"choice_a_prompt"`
	ChoiceBPrompt string `json:"choice_b_prompt"`
	ChoiceAText   string `json:"choice_a_text"`
	ChoiceBText   string `json:"choice_b_text"`
}

// Choice 单个分支选项。
type Choice struct {
	Label  string `json:"label"`
	Text   string `json:"text"`
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// ChoicesResponse 分支选项生成响应。
type ChoicesResponse struct {
	Type    string   `json:"type"`
	Choices []Choice `json:"choices"`
}

// =============================================================================
// 旧版组合端点类型（向后兼容，勿改动 wire 格式）
// =============================================================================

// LegacySceneRequest 旧版三图组合请求：场景 + 两个选项。
type LegacySceneRequest struct {
	ScenePrompt string `json:"scene_prompt"`
	OptionA     string `json:"option_a"`
	OptionB     string `json:"option_b"`
}

// LegacyOption 旧版选项条目。
type LegacyOption struct {
	Label  string `json:"label"`
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// LegacySceneResponse 旧版组合响应。
type LegacySceneResponse struct {
	SceneURL string         `json:"sceneURL"`
	Options  []LegacyOption `json:"options"`
}

// =============================================================================
// 语音平台 webhook 类型（与平台实际格式保持一致）
// =============================================================================

// VapiFunction webhook 中嵌套的函数调用。
type VapiFunction struct {
	Name      string         `json:"name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// VapiToolCall 单条工具调用。
type VapiToolCall struct {
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type,omitempty"`
	Function *VapiFunction `json:"function,omitempty"`
}

// VapiMessage webhook 消息信封。
type VapiMessage struct {
	Type         string         `json:"type,omitempty"`
	ToolCallList []VapiToolCall `json:"toolCallList,omitempty"`
}

// VapiRequest webhook 请求体。
type VapiRequest struct {
	Message *VapiMessage `json:"message,omitempty"`
}

// VapiResult 单条工具调用结果。每个合法的工具调用恰好产生一条结果。
type VapiResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// VapiResponse webhook 响应体。无论内部是否失败，HTTP 状态恒为 200。
type VapiResponse struct {
	Results []VapiResult `json:"results"`
}

// =============================================================================
// 连通性测试类型
// =============================================================================

// TestVapiRequest 语音平台连通性探测请求。
type TestVapiRequest struct {
	TestMessage string `json:"test_message"`
}

// TestVapiResponse 连通性探测响应。
type TestVapiResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
