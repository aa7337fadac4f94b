package validator

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Init 接管 gin 的校验引擎并注册自定义规则
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validate = v
		_ = v.RegisterValidation("evm_addr", isEVMAddress)
	}
}

// isEVMAddress 校验 0x 开头的 20 字节十六进制地址
func isEVMAddress(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String()) && strings.HasPrefix(fl.Field().String(), "0x")
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var errMsgs []string
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()
			param := e.Param()

			switch tag {
			case "required":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 不能为空", field))
			case "evm_addr":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 不是合法的地址", field))
			case "min":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 至少为 %s", field, param))
			case "max":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 不能超过 %s", field, param))
			case "oneof":
				errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 [%s] 之一", field, param))
			default:
				errMsgs = append(errMsgs, fmt.Sprintf("%s 校验失败 (%s)", field, tag))
			}
		}
		return strings.Join(errMsgs, "; ")
	}
	return "请求参数错误"
}
