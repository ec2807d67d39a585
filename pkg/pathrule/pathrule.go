// Package pathrule 根据路径规则模板渲染对象存储键.
//
// 支持的占位符：
//
//	{date}     上传日期，格式 YYYYMMDD
//	{year}     四位年份
//	{month}    两位月份
//	{day}      两位日期
//	{filename} 去掉扩展名的原始文件名
//	{ext}      小写扩展名（不含点）
//	{md5}      文件内容的 MD5（仅 RenderWithHash 提供，Render 中渲染为空串）
//
// 未识别的占位符原样保留：这是刻意的宽松策略，新增占位符不会破坏旧模板.
package pathrule

import (
	"strings"
	"time"
)

// DefaultRule 默认路径规则.
const DefaultRule = "uploads/{date}/{filename}.{ext}"

// Render 渲染路径规则，at 为上传时间.
func Render(rule, filename string, at time.Time) string {
	return RenderWithHash(rule, filename, "", at)
}

// RenderWithHash 渲染路径规则，md5 用于 {md5} 占位符（以哈希命名可缩短路径并避免文件名冲突）.
func RenderWithHash(rule, filename, md5 string, at time.Time) string {
	if rule == "" {
		rule = DefaultRule
	}

	name, ext := splitExt(filename)

	replacer := strings.NewReplacer(
		"{date}", at.Format("20060102"),
		"{year}", at.Format("2006"),
		"{month}", at.Format("01"),
		"{day}", at.Format("02"),
		"{filename}", name,
		"{ext}", ext,
		"{md5}", md5,
	)

	return replacer.Replace(rule)
}

// splitExt 拆分文件名和小写扩展名（不含点）.
func splitExt(filename string) (name, ext string) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return filename, ""
	}

	return filename[:idx], strings.ToLower(filename[idx+1:])
}
