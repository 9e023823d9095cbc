package acl

// 路由模式，与客户端配置中的 route 字段取值一致
const (
	RouteAll            = "all"
	RouteBypassLAN      = "bypass-lan"
	RouteBypassChina    = "bypass-china"
	RouteBypassLANChina = "bypass-lan-china"
	RouteGFWList        = "gfwlist"
	RouteChinaList      = "china-list"
	RouteCustomRules    = "custom-rules"
)

// Routes 全部内置路由模式
var Routes = []string{
	RouteAll,
	RouteBypassLAN,
	RouteBypassChina,
	RouteBypassLANChina,
	RouteGFWList,
	RouteChinaList,
	RouteCustomRules,
}

// IsKnownRoute 未知模式不是错误，调用方按默认分支处理
func IsKnownRoute(route string) bool {
	for _, r := range Routes {
		if r == route {
			return true
		}
	}
	return false
}
