package config

// defaultFunds is the built-in LOF universe used when the config file does
// not list any funds.
func defaultFunds() map[string]string {
	return map[string]string{
		"161725": "招商中证白酒指数(LOF)A",
		"161028": "富国中证新能源汽车指数(LOF)",
		"160632": "鹏华酒分级",
		"160225": "国泰国证新能源汽车指数(LOF)",
		"160633": "鹏华中证一带一路主题指数(LOF)",
		"161607": "融通巨潮100指数(LOF)A",
		"161610": "融通领先成长混合(LOF)",
		"161631": "融通人工智能指数(LOF)A",
		"161726": "招商国证生物医药指数(LOF)A",
		"161727": "招商中证银行指数(LOF)A",
		"161728": "招商中证煤炭等权指数(LOF)A",
		"161729": "招商中证证券公司指数(LOF)A",
		"163402": "兴全趋势投资混合(LOF)",
		"161005": "富国天惠精选成长混合(LOF)A",
		"163406": "兴全合润混合(LOF)",
		"163407": "兴全沪深300指数(LOF)A",
		"163409": "兴全绿色投资混合(LOF)",
		"163412": "兴全轻资产投资混合(LOF)",
		"163415": "兴全商业模式优选混合(LOF)",
		"163417": "兴全合宜混合(LOF)A",
		"161017": "富国中证500指数增强(LOF)A",
		"161019": "富国中证军工指数(LOF)A",
		"161022": "富国创业板指数(LOF)A",
		"161025": "富国中证移动互联网指数(LOF)A",
		"161026": "富国中证国有企业改革指数(LOF)A",
		"161027": "富国中证全指证券公司指数(LOF)A",
		"161029": "富国中证银行指数(LOF)A",
		"161030": "富国中证煤炭指数(LOF)A",
		"161031": "富国中证工业4.0指数(LOF)A",
		"161032": "富国中证体育产业指数(LOF)A",
		"161033": "富国中证智能汽车指数(LOF)A",
		"161035": "富国中证医药主题指数(LOF)A",
		"161036": "富国中证高端制造指数(LOF)A",
		"161037": "富国中证消费50指数(LOF)A",
		"160119": "南方中证500ETF联接(LOF)A",
		"160125": "南方香港优选股票(LOF)",
		"160127": "南方新兴消费增长股票(LOF)",
		"160133": "南方天元新产业股票(LOF)",
		"160135": "南方中证高铁产业指数(LOF)",
		"160136": "南方中证互联网指数(LOF)",
	}
}
