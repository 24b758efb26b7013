package channels

import (
	"strings"

	"github.com/dwern/popchat/pkg/config"
)

// widgetPage renders the embedded popup page with the configured
// title, subtitle and input placeholder substituted in.
func widgetPage(cfg config.WidgetConfig) string {
	r := strings.NewReplacer(
		"{{TITLE}}", EscapeText(cfg.WidgetTitle),
		"{{SUBTITLE}}", EscapeText(cfg.WidgetSubtitle),
		"{{PLACEHOLDER}}", EscapeText(cfg.InputPlaceholder),
	)
	return r.Replace(widgetHTML)
}

var widgetHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{TITLE}}</title>
<style>
:root{
  --bg:#14161f;--panel:#1b1e2a;--border:#2a2e3f;
  --accent:#4f8cff;--accent-hover:#3a76e8;
  --text:#e9e9f0;--muted:#8b8e9c;
  --user-bg:#4f8cff;--assistant-bg:#242838;
}
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:system-ui,-apple-system,sans-serif;background:var(--bg);color:var(--text)}
#launcher{
  position:fixed;right:24px;bottom:24px;width:56px;height:56px;
  background:var(--accent);border:none;border-radius:50%;cursor:pointer;
  color:#fff;font-size:24px;box-shadow:0 4px 16px rgba(0,0,0,.4);
}
#launcher:hover{background:var(--accent-hover)}
#panel{
  position:fixed;right:24px;bottom:92px;width:340px;max-width:calc(100vw - 32px);
  height:460px;background:var(--panel);border:1px solid var(--border);
  border-radius:14px;display:none;flex-direction:column;overflow:hidden;
  box-shadow:0 8px 32px rgba(0,0,0,.5);
}
#panel.open{display:flex}
#head{padding:14px 16px;border-bottom:1px solid var(--border)}
#head h1{font-size:15px;font-weight:600}
#head .sub{font-size:12px;color:var(--muted)}
#log{flex:1;overflow-y:auto;padding:14px;display:flex;flex-direction:column;gap:10px}
.msg{max-width:82%;padding:9px 12px;border-radius:12px;font-size:13px;line-height:1.5;word-wrap:break-word}
.msg.user{align-self:flex-end;background:var(--user-bg);color:#fff;border-bottom-right-radius:4px}
.msg.assistant{align-self:flex-start;background:var(--assistant-bg);border:1px solid var(--border);border-bottom-left-radius:4px}
.msg code{background:rgba(0,0,0,.3);padding:1px 5px;border-radius:4px;font-size:12px}
.msg pre{background:rgba(0,0,0,.3);padding:10px;border-radius:6px;overflow-x:auto;margin:6px 0}
.msg a{color:#9dc1ff}
#busy{padding:0 16px 6px;font-size:12px;color:var(--muted);min-height:18px}
#form{display:flex;gap:8px;padding:12px;border-top:1px solid var(--border)}
#input{
  flex:1;padding:9px 12px;background:var(--bg);color:var(--text);
  border:1px solid var(--border);border-radius:8px;font-size:13px;outline:none;
}
#input:focus{border-color:var(--accent)}
#submit{
  padding:9px 14px;background:var(--accent);color:#fff;border:none;
  border-radius:8px;font-size:13px;cursor:pointer;
}
#submit:disabled{opacity:.4;cursor:not-allowed}
</style>
</head>
<body>
<button id="launcher" aria-label="Open chat">&#128172;</button>
<div id="panel" role="dialog" aria-label="{{TITLE}}">
  <div id="head"><h1>{{TITLE}}</h1><div class="sub">{{SUBTITLE}}</div></div>
  <div id="log"></div>
  <div id="busy"></div>
  <form id="form">
    <input id="input" autocomplete="off" placeholder="{{PLACEHOLDER}}" aria-label="Message">
    <button id="submit" type="submit">Send</button>
  </form>
</div>
<script>
const panel=document.getElementById("panel"),
      log=document.getElementById("log"),
      form=document.getElementById("form"),
      input=document.getElementById("input"),
      submit=document.getElementById("submit"),
      busyEl=document.getElementById("busy");
let opened=false,busy=false;
function addTurn(role,html){
  const el=document.createElement("div");
  el.className="msg "+role;
  el.innerHTML=html;
  log.appendChild(el);
  log.scrollTop=log.scrollHeight;
}
function renderTranscript(turns){
  log.innerHTML="";
  for(const t of turns)addTurn(t.role,t.html);
}
function setBusy(b){
  busy=b;submit.disabled=b;
  busyEl.textContent=b?"Thinking...":"";
}
document.getElementById("launcher").onclick=async()=>{
  panel.classList.toggle("open");
  if(!panel.classList.contains("open"))return;
  input.focus();
  if(opened)return;
  opened=true;
  const r=await fetch("/chat/open",{method:"POST"});
  if(r.ok)renderTranscript(await r.json());
};
form.onsubmit=async e=>{
  e.preventDefault();
  const text=input.value.trim();
  if(!text||busy)return;
  input.value="";
  const esc=text.replace(/&/g,"&amp;").replace(/</g,"&lt;").replace(/>/g,"&gt;");
  addTurn("user",esc);
  setBusy(true);
  try{
    const r=await fetch("/chat/send",{
      method:"POST",
      headers:{"Content-Type":"application/json"},
      body:JSON.stringify({message:text})
    });
    if(r.ok){
      const d=await r.json();
      addTurn("assistant",d.html);
    }
  }catch(_){}
  setBusy(false);
  input.focus();
};
</script>
</body>
</html>`
